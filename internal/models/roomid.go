package models

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RoomID identifies a room. It is validated once at the transport boundary;
// the core never re-validates it.
type RoomID int64

// dmSeparator glues the two participant ids together when deriving a
// direct-message room id. Existing clients generate ids with this separator,
// so it must not change.
const dmSeparator = "9999"

var ErrInvalidRoomID = errors.New("room id must be a positive integer")

// ParseRoomID coerces a caller-supplied room identifier into a typed value.
// Non-numeric input is a client error and never reaches the core.
func ParseRoomID(raw string) (RoomID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomID, raw)
	}
	return RoomID(id), nil
}

// DeriveDMRoomID returns the deterministic room id for a direct-message pair.
// Symmetric in its arguments: DeriveDMRoomID(a, b) == DeriveDMRoomID(b, a).
func DeriveDMRoomID(u1, u2 int64) RoomID {
	lo, hi := u1, u2
	if lo > hi {
		lo, hi = hi, lo
	}
	id, _ := strconv.ParseInt(fmt.Sprintf("%d%s%d", lo, dmSeparator, hi), 10, 64)
	return RoomID(id)
}

func (r RoomID) String() string {
	return strconv.FormatInt(int64(r), 10)
}

// UnmarshalJSON accepts a room id either as a JSON number or as a numeric
// string, since clients send both forms.
func (r *RoomID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}
	id, err := ParseRoomID(string(data))
	if err != nil {
		return err
	}
	*r = id
	return nil
}
