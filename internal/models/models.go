package models

import "errors"

var (
	ErrNotFound = errors.New("not found")
)

type RoomKind string

const (
	RoomKindPublic RoomKind = "public"
	RoomKindDirect RoomKind = "direct"
)

// User represents a user in the system. The Online flag is mutated only by
// the presence tracker on connect/disconnect.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Online   bool   `json:"is_online"`
}

// Room represents a chat room. Public room names are upper-cased at the
// boundary before they reach the registry; direct-message rooms derive their
// ID from the participant pair (see DeriveDMRoomID).
type Room struct {
	ID        RoomID   `json:"room_id"`
	Name      string   `json:"room_name"`
	Kind      RoomKind `json:"kind"`
	CreatedAt int64    `json:"created_at"` // Unix timestamp (milliseconds)
}

// IsDirect reports whether the room is a two-party direct-message room.
func (r Room) IsDirect() bool {
	return r.Kind == RoomKindDirect
}

// Message represents a chat message. Immutable once created. CreatedAt is
// server-assigned and non-decreasing in insertion order.
type Message struct {
	ID        int64  `json:"id"`
	RoomID    RoomID `json:"room_id"`
	SenderID  int64  `json:"sender_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"` // Unix timestamp (milliseconds)
}
