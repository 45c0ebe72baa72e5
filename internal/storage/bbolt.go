package storage

import (
	"fmt"
	"sort"
	"time"

	"parlor/internal/auth"
	"parlor/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketUsers    = []byte("users")
	bucketRooms    = []byte("rooms")
	bucketMembers  = []byte("members")
	bucketMessages = []byte("messages")
)

type BboltStorage struct {
	db *bbolt.DB
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketUsers, bucketRooms, bucketMembers, bucketMessages} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

// CreateUser stores a new user with the next free id. The email must be
// unique; the uniqueness check runs in the same transaction as the insert.
func (s *BboltStorage) CreateUser(username, email, passwordHash string) (models.User, error) {
	var user models.User
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)

		var taken bool
		err := b.ForEach(func(k, v []byte) error {
			var existing DBUser
			if err := existing.UnmarshalBinary(v); err != nil {
				return err
			}
			if existing.Email == email {
				taken = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if taken {
			return auth.ErrEmailTaken
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		dbUser := &DBUser{
			ID:           int64(seq),
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
		}
		data, err := dbUser.MarshalBinary()
		if err != nil {
			return err
		}
		if err := b.Put(dbUser.Key(), data); err != nil {
			return err
		}

		user = models.User{ID: dbUser.ID, Username: username, Email: email}
		return nil
	})
	return user, err
}

// FindUserByEmail returns the credentials for the given email, or
// models.ErrNotFound.
func (s *BboltStorage) FindUserByEmail(email string) (auth.Credentials, error) {
	var creds auth.Credentials
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		return b.ForEach(func(k, v []byte) error {
			var dbUser DBUser
			if err := dbUser.UnmarshalBinary(v); err != nil {
				return err
			}
			if dbUser.Email == email {
				creds = auth.Credentials{
					User:         userFromDB(dbUser),
					PasswordHash: dbUser.PasswordHash,
				}
				found = true
			}
			return nil
		})
	})
	if err != nil {
		return auth.Credentials{}, err
	}
	if !found {
		return auth.Credentials{}, models.ErrNotFound
	}
	return creds, nil
}

func (s *BboltStorage) GetUser(id int64) (models.User, error) {
	var user models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get(int64Key(id))
		if data == nil {
			return models.ErrNotFound
		}
		var dbUser DBUser
		if err := dbUser.UnmarshalBinary(data); err != nil {
			return err
		}
		user = userFromDB(dbUser)
		return nil
	})
	return user, err
}

// ListUsers returns all users, without credential material.
func (s *BboltStorage) ListUsers() ([]models.User, error) {
	var users []models.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		return b.ForEach(func(k, v []byte) error {
			var dbUser DBUser
			if err := dbUser.UnmarshalBinary(v); err != nil {
				return err
			}
			users = append(users, userFromDB(dbUser))
			return nil
		})
	})
	return users, err
}

// SetOnline flips the persisted online flag. A missing user is a no-op, same
// as an update matching zero rows.
func (s *BboltStorage) SetOnline(userID int64, online bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		data := b.Get(int64Key(userID))
		if data == nil {
			return nil
		}
		var dbUser DBUser
		if err := dbUser.UnmarshalBinary(data); err != nil {
			return err
		}
		dbUser.Online = online
		updated, err := dbUser.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(dbUser.Key(), updated)
	})
}

func (s *BboltStorage) UpdateUsername(userID int64, username string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		data := b.Get(int64Key(userID))
		if data == nil {
			return models.ErrNotFound
		}
		var dbUser DBUser
		if err := dbUser.UnmarshalBinary(data); err != nil {
			return err
		}
		dbUser.Username = username
		updated, err := dbUser.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(dbUser.Key(), updated)
	})
}

// InsertRoomIfAbsent creates the room if it does not exist yet. The first
// write wins: a concurrent identical insert is a no-op, never an error.
func (s *BboltStorage) InsertRoomIfAbsent(room models.Room) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		key := int64Key(int64(room.ID))
		if b.Get(key) != nil {
			return nil
		}

		dbRoom := &DBRoom{
			ID:        int64(room.ID),
			Name:      room.Name,
			IsDM:      room.IsDirect(),
			CreatedAt: time.Now().UnixMilli(),
		}
		data, err := dbRoom.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// ListRooms returns all rooms, newest-created first.
func (s *BboltStorage) ListRooms() ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRooms)
		return b.ForEach(func(k, v []byte) error {
			var dbRoom DBRoom
			if err := dbRoom.UnmarshalBinary(v); err != nil {
				return err
			}
			kind := models.RoomKindPublic
			if dbRoom.IsDM {
				kind = models.RoomKindDirect
			}
			rooms = append(rooms, models.Room{
				ID:        models.RoomID(dbRoom.ID),
				Name:      dbRoom.Name,
				Kind:      kind,
				CreatedAt: dbRoom.CreatedAt,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt != rooms[j].CreatedAt {
			return rooms[i].CreatedAt > rooms[j].CreatedAt
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

// InsertMembershipIfAbsent records a (room, user) pair. Duplicate joins are
// no-ops.
func (s *BboltStorage) InsertMembershipIfAbsent(roomID models.RoomID, userID int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMembers)
		member := &DBMember{RoomID: int64(roomID), UserID: userID}
		if b.Get(member.Key()) != nil {
			return nil
		}
		data, err := member.MarshalBinary()
		if err != nil {
			return err
		}
		return b.Put(member.Key(), data)
	})
}

// ListMembers returns the user ids recorded for the room.
func (s *BboltStorage) ListMembers(roomID models.RoomID) ([]int64, error) {
	var members []int64
	prefix := int64Key(int64(roomID))
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketMembers).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) == 16 && string(k[:8]) == string(prefix); k, v = c.Next() {
			var member DBMember
			if err := member.UnmarshalBinary(v); err != nil {
				return err
			}
			members = append(members, member.UserID)
		}
		return nil
	})
	return members, err
}

// InsertMessage stores a message under the room's sub-bucket and returns it
// with its server-assigned id and timestamp. Timestamps never decrease in
// insertion order, even if the wall clock does.
func (s *BboltStorage) InsertMessage(roomID models.RoomID, senderID int64, content string) (models.Message, error) {
	var message models.Message
	err := s.db.Update(func(tx *bbolt.Tx) error {
		roomBucket, err := tx.Bucket(bucketMessages).CreateBucketIfNotExists(int64Key(int64(roomID)))
		if err != nil {
			return fmt.Errorf("failed to create room bucket: %w", err)
		}

		createdAt := time.Now().UnixMilli()
		if k, v := roomBucket.Cursor().Last(); k != nil {
			var prev DBMessage
			if err := prev.UnmarshalBinary(v); err != nil {
				return err
			}
			if createdAt < prev.CreatedAt {
				createdAt = prev.CreatedAt
			}
		}

		seq, err := roomBucket.NextSequence()
		if err != nil {
			return err
		}

		dbMessage := &DBMessage{
			ID:        int64(seq),
			RoomID:    int64(roomID),
			SenderID:  senderID,
			Content:   content,
			CreatedAt: createdAt,
		}
		data, err := dbMessage.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if err := roomBucket.Put(dbMessage.Key(), data); err != nil {
			return fmt.Errorf("failed to put message: %w", err)
		}

		message = models.Message{
			ID:        dbMessage.ID,
			RoomID:    roomID,
			SenderID:  senderID,
			Content:   content,
			CreatedAt: createdAt,
		}
		return nil
	})
	return message, err
}

// ListMessages returns the room's history in creation order, each message
// joined with the sender's current username.
func (s *BboltStorage) ListMessages(roomID models.RoomID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		roomBucket := tx.Bucket(bucketMessages).Bucket(int64Key(int64(roomID)))
		if roomBucket == nil {
			return nil // no messages for this room
		}

		users := tx.Bucket(bucketUsers)
		return roomBucket.ForEach(func(k, v []byte) error {
			var dbMsg DBMessage
			if err := dbMsg.UnmarshalBinary(v); err != nil {
				return err
			}

			msg := models.Message{
				ID:        dbMsg.ID,
				RoomID:    models.RoomID(dbMsg.RoomID),
				SenderID:  dbMsg.SenderID,
				Content:   dbMsg.Content,
				CreatedAt: dbMsg.CreatedAt,
			}
			if data := users.Get(int64Key(dbMsg.SenderID)); data != nil {
				var sender DBUser
				if err := sender.UnmarshalBinary(data); err != nil {
					return err
				}
				msg.Username = sender.Username
			}
			messages = append(messages, msg)
			return nil
		})
	})
	return messages, err
}

func userFromDB(u DBUser) models.User {
	return models.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Online:   u.Online,
	}
}
