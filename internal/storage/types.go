package storage

import (
	"encoding"
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type DBUser struct {
	ID           int64  `msgpack:"id"`
	Username     string `msgpack:"username"`
	Email        string `msgpack:"email"`
	PasswordHash string `msgpack:"passwordHash"`
	Online       bool   `msgpack:"isOnline"`
}

func (u *DBUser) Key() []byte {
	return int64Key(u.ID)
}

func (u *DBUser) MarshalBinary() (data []byte, err error) {
	type alias DBUser
	return msgpack.Marshal((*alias)(u))
}

func (u *DBUser) UnmarshalBinary(data []byte) error {
	type alias DBUser
	return msgpack.Unmarshal(data, (*alias)(u))
}

type DBRoom struct {
	ID        int64  `msgpack:"id"`
	Name      string `msgpack:"name"`
	IsDM      bool   `msgpack:"isDm"`
	CreatedAt int64  `msgpack:"createdAt"`
}

func (r *DBRoom) Key() []byte {
	return int64Key(r.ID)
}

func (r *DBRoom) MarshalBinary() (data []byte, err error) {
	type alias DBRoom
	return msgpack.Marshal((*alias)(r))
}

func (r *DBRoom) UnmarshalBinary(data []byte) error {
	type alias DBRoom
	return msgpack.Unmarshal(data, (*alias)(r))
}

// DBMember is a (room, user) membership pair. The key is the concatenation
// of both ids, so duplicate joins overwrite the same record.
type DBMember struct {
	RoomID int64 `msgpack:"roomId"`
	UserID int64 `msgpack:"userId"`
}

func (m *DBMember) Key() []byte {
	return append(int64Key(m.RoomID), int64Key(m.UserID)...)
}

func (m *DBMember) MarshalBinary() (data []byte, err error) {
	type alias DBMember
	return msgpack.Marshal((*alias)(m))
}

func (m *DBMember) UnmarshalBinary(data []byte) error {
	type alias DBMember
	return msgpack.Unmarshal(data, (*alias)(m))
}

type DBMessage struct {
	ID        int64  `msgpack:"id"`
	RoomID    int64  `msgpack:"roomId"`
	SenderID  int64  `msgpack:"senderId"`
	Content   string `msgpack:"content"`
	CreatedAt int64  `msgpack:"createdAt"`
}

func (m *DBMessage) Key() []byte {
	return int64Key(m.ID)
}

func (m *DBMessage) MarshalBinary() (data []byte, err error) {
	type alias DBMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *DBMessage) UnmarshalBinary(data []byte) error {
	type alias DBMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

func int64Key(v int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(v))
	return key
}
