package models

// ClientEvent represents an event sent from the client to the server.
// A single envelope carries all inbound event kinds; which fields are
// meaningful depends on Type.
type ClientEvent struct {
	Type     ClientEventType `json:"type"`
	UserID   int64           `json:"userId,omitempty"`
	RoomID   RoomID          `json:"roomId,omitempty"`
	RoomName string          `json:"roomName,omitempty"`
	SenderID int64           `json:"senderId,omitempty"`
	Username string          `json:"username,omitempty"`
	Content  string          `json:"content,omitempty"`
}

// ServerEvent represents an event delivered to the client.
type ServerEvent struct {
	Type     ServerEventType `json:"type"`
	RoomID   RoomID          `json:"roomId,omitempty"`
	Username string          `json:"username,omitempty"`
	Message  *Message        `json:"message,omitempty"`
}

type ClientEventType string

const (
	// ClientEventUserConnected binds a user identity to the connection.
	ClientEventUserConnected ClientEventType = "user_connected"
	ClientEventJoinRoom      ClientEventType = "join_room"
	ClientEventSendMessage   ClientEventType = "send_message"
	ClientEventTyping        ClientEventType = "typing"
	ClientEventStopTyping    ClientEventType = "stop_typing"
	// ClientEventProfileUpdated asks the server to tell everyone to re-fetch
	// the user list after a profile change.
	ClientEventProfileUpdated ClientEventType = "profile_updated"
)

type ServerEventType string

const (
	ServerEventReceiveMessage    ServerEventType = "receive_message"
	ServerEventUserTyping        ServerEventType = "user_typing"
	ServerEventUserStoppedTyping ServerEventType = "user_stopped_typing"
	// ServerEventUpdateUsersStatus is a coalesced presence-refresh signal:
	// clients re-fetch the full user list instead of applying a diff.
	ServerEventUpdateUsersStatus ServerEventType = "update_users_status"
)
