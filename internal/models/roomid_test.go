package models

import (
	"encoding/json"
	"testing"
)

func TestDeriveDMRoomID_Symmetric(t *testing.T) {
	pairs := [][2]int64{
		{1, 2},
		{7, 12},
		{12, 7},
		{3, 3},
		{100, 1},
	}

	for _, p := range pairs {
		a := DeriveDMRoomID(p[0], p[1])
		b := DeriveDMRoomID(p[1], p[0])
		if a != b {
			t.Errorf("DeriveDMRoomID(%d,%d)=%d != DeriveDMRoomID(%d,%d)=%d",
				p[0], p[1], a, p[1], p[0], b)
		}
	}
}

func TestDeriveDMRoomID_Value(t *testing.T) {
	// min id, separator, max id
	if got := DeriveDMRoomID(7, 12); got != 7999912 {
		t.Errorf("DeriveDMRoomID(7,12) = %d, want 7999912", got)
	}
	if got := DeriveDMRoomID(12, 7); got != 7999912 {
		t.Errorf("DeriveDMRoomID(12,7) = %d, want 7999912", got)
	}
}

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RoomID
		wantErr bool
	}{
		{"Numeric", "42", 42, false},
		{"Whitespace", " 42 ", 42, false},
		{"DM id", "7999912", 7999912, false},
		{"Empty", "", 0, true},
		{"Non-numeric", "general", 0, true},
		{"Negative", "-5", 0, true},
		{"Zero", "0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoomID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRoomID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRoomID(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoomID_UnmarshalJSON(t *testing.T) {
	type payload struct {
		RoomID RoomID `json:"roomId"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"roomId": 42}`), &p); err != nil || p.RoomID != 42 {
		t.Errorf("number form: got %d, err %v", p.RoomID, err)
	}

	p = payload{}
	if err := json.Unmarshal([]byte(`{"roomId": "42"}`), &p); err != nil || p.RoomID != 42 {
		t.Errorf("string form: got %d, err %v", p.RoomID, err)
	}

	p = payload{}
	if err := json.Unmarshal([]byte(`{}`), &p); err != nil || p.RoomID != 0 {
		t.Errorf("absent: got %d, err %v", p.RoomID, err)
	}

	if err := json.Unmarshal([]byte(`{"roomId": "general"}`), &p); err == nil {
		t.Error("expected error for non-numeric room id")
	}
}
