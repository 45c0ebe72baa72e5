package hub

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"parlor/internal/content"
	"parlor/internal/models"
)

const (
	DefaultTypingWindow = 2 * time.Second
	DefaultSendBuffer   = 100

	// Name prefix existing clients use for direct-message rooms.
	dmNamePrefix = "DM:"
)

// Store is the persistence contract the hub relies on. Writes must be
// idempotent: no transaction spans an in-memory update and its persisted
// write, so a retried or duplicated write has to be harmless.
type Store interface {
	InsertRoomIfAbsent(room models.Room) error
	InsertMembershipIfAbsent(roomID models.RoomID, userID int64) error
	InsertMessage(roomID models.RoomID, senderID int64, content string) (models.Message, error)
	SetOnline(userID int64, online bool) error
	ListRooms() ([]models.Room, error)
	ListUsers() ([]models.User, error)
}

type Config struct {
	// TypingWindow is how long a typing signal stays live without renewal.
	TypingWindow time.Duration
	// SendBuffer is the outbound queue size per session.
	SendBuffer int
}

// Hub routes events to the sessions subscribed to each room. One instance is
// constructed at process start and passed to every component that needs to
// broadcast; its lifecycle is the process lifecycle.
type Hub struct {
	cfg      Config
	store    Store
	registry *registry
	presence *presence
	typing   *debouncer

	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[models.RoomID]map[string]*Session
}

func New(store Store, cfg Config) *Hub {
	if cfg.TypingWindow <= 0 {
		cfg.TypingWindow = DefaultTypingWindow
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}

	h := &Hub{
		cfg:      cfg,
		store:    store,
		registry: &registry{store: store},
		sessions: make(map[string]*Session),
		rooms:    make(map[models.RoomID]map[string]*Session),
	}
	h.presence = &presence{store: store, refresh: func() {
		h.BroadcastGlobal(models.ServerEvent{Type: models.ServerEventUpdateUsersStatus})
	}}
	h.typing = newDebouncer(cfg.TypingWindow, h.emitStoppedTyping)
	return h
}

// Register creates a session for a freshly opened connection.
func (h *Hub) Register() *Session {
	s := NewSession(h.cfg.SendBuffer)

	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()

	return s
}

// BindUser records the announced identity on the session and marks the user
// online. A repeated announce rebinds; the last one wins.
func (h *Hub) BindUser(s *Session, userID int64) {
	if !s.bind(userID) {
		return
	}
	h.presence.markOnline(userID)
}

// JoinRoom attaches the session to the room's delivery group, then persists
// the room and the membership. Persistence failures are logged and do not
// roll back the in-memory join. The user id comes from the join payload and
// may differ from the session's bound identity; it is caller-trusted.
func (h *Hub) JoinRoom(s *Session, roomID models.RoomID, roomName string, userID int64) {
	if !s.trackRoom(roomID) {
		return
	}

	h.mu.Lock()
	group, ok := h.rooms[roomID]
	if !ok {
		group = make(map[string]*Session)
		h.rooms[roomID] = group
	}
	group[s.ID()] = s
	h.mu.Unlock()

	kind := models.RoomKindPublic
	if strings.HasPrefix(roomName, dmNamePrefix) {
		kind = models.RoomKindDirect
	}
	h.registry.ensure(models.Room{ID: roomID, Name: roomName, Kind: kind})
	h.registry.addMember(roomID, userID)

	slog.Info("session joined room", "session_id", s.ID(), "room_id", roomID, "user_id", userID)
}

// SendMessage persists the message and, only on success, broadcasts it to
// every session in the room including the sender. A message that fails to
// persist is never delivered. A send also ends the sender's pending typing
// indicator.
func (h *Hub) SendMessage(s *Session, roomID models.RoomID, senderID int64, username, body string) {
	if s.State() == StateClosed {
		return
	}

	msg, err := h.store.InsertMessage(roomID, senderID, content.Sanitize(body))
	if err != nil {
		slog.Error("failed to persist message, suppressing broadcast",
			"room_id", roomID, "sender_id", senderID, "error", err)
		return
	}
	msg.Username = username

	h.BroadcastToRoom(roomID, models.ServerEvent{
		Type:    models.ServerEventReceiveMessage,
		RoomID:  roomID,
		Message: &msg,
	})

	uid, _ := s.UserID()
	h.typing.cancel(roomID, uid)
}

// Typing announces the typing user to the room (never back to the sender)
// and arms the debounce timer, superseding any previous one for the same
// (room, user) key.
func (h *Hub) Typing(s *Session, roomID models.RoomID, username string) {
	if s.State() == StateClosed {
		return
	}

	h.BroadcastToRoomExceptSender(roomID, models.ServerEvent{
		Type:     models.ServerEventUserTyping,
		RoomID:   roomID,
		Username: username,
	}, s)

	uid, _ := s.UserID()
	h.typing.arm(roomID, uid, username, s)
}

// StopTyping cancels the pending timer and emits the stopped signal
// immediately.
func (h *Hub) StopTyping(s *Session, roomID models.RoomID) {
	if s.State() == StateClosed {
		return
	}

	uid, _ := s.UserID()
	h.typing.cancel(roomID, uid)

	h.BroadcastToRoomExceptSender(roomID, models.ServerEvent{
		Type:   models.ServerEventUserStoppedTyping,
		RoomID: roomID,
	}, s)
}

// ProfileUpdated tells every connected client to re-fetch the user list.
func (h *Hub) ProfileUpdated(s *Session) {
	h.BroadcastGlobal(models.ServerEvent{Type: models.ServerEventUpdateUsersStatus})
}

// Disconnect tears the session down. If the session had bound an identity
// the user is marked offline. Already-armed typing timers are left to fire
// their one remaining expiry. Closed sessions receive no further events.
func (h *Hub) Disconnect(s *Session) {
	userID, wasBound, alreadyClosed := s.close()
	if alreadyClosed {
		return
	}

	h.mu.Lock()
	delete(h.sessions, s.ID())
	for _, roomID := range s.roomIDs() {
		if group, ok := h.rooms[roomID]; ok {
			delete(group, s.ID())
			if len(group) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()

	if wasBound {
		h.presence.markOffline(userID)
	}
}

// Rooms lists all known rooms, newest-created first.
func (h *Hub) Rooms() ([]models.Room, error) {
	return h.registry.listRooms()
}

// Users lists all users with their online flag, excluding credential
// material.
func (h *Hub) Users() ([]models.User, error) {
	return h.presence.listUsers()
}

// BroadcastToRoom delivers the event to every session currently in the
// room's group, the sender included.
func (h *Hub) BroadcastToRoom(roomID models.RoomID, ev models.ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.rooms[roomID] {
		if !s.Deliver(ev) {
			slog.Debug("dropped event", "session_id", s.ID(), "type", ev.Type)
		}
	}
}

// BroadcastToRoomExceptSender delivers the event to every session in the
// room's group but the originating one.
func (h *Hub) BroadcastToRoomExceptSender(roomID models.RoomID, ev models.ServerEvent, sender *Session) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.rooms[roomID] {
		if s == sender {
			continue
		}
		if !s.Deliver(ev) {
			slog.Debug("dropped event", "session_id", s.ID(), "type", ev.Type)
		}
	}
}

// BroadcastGlobal delivers the event to every connected session regardless
// of room. Used only for the presence-refresh signal.
func (h *Hub) BroadcastGlobal(ev models.ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.sessions {
		if !s.Deliver(ev) {
			slog.Debug("dropped event", "session_id", s.ID(), "type", ev.Type)
		}
	}
}

func (h *Hub) emitStoppedTyping(roomID models.RoomID, username string, sender *Session) {
	h.BroadcastToRoomExceptSender(roomID, models.ServerEvent{
		Type:     models.ServerEventUserStoppedTyping,
		RoomID:   roomID,
		Username: username,
	}, sender)
}
