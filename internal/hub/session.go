package hub

import (
	"sync"

	"parlor/internal/models"

	"github.com/google/uuid"
)

type SessionState int

const (
	// StateUnbound is the initial state: the connection is open but no user
	// identity has been announced yet.
	StateUnbound SessionState = iota
	StateBound
	StateClosed
)

// Session is the per-connection state. It moves Unbound -> Bound on the
// first identity announce and to Closed on disconnect; Closed is terminal.
// Room joins are allowed in any non-Closed state.
type Session struct {
	id string

	mu     sync.RWMutex
	state  SessionState
	userID int64
	rooms  map[models.RoomID]struct{}
	out    chan models.ServerEvent
}

func NewSession(buffer int) *Session {
	return &Session{
		id:    uuid.NewString(),
		rooms: make(map[models.RoomID]struct{}),
		out:   make(chan models.ServerEvent, buffer),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Events is the outbound delivery channel, drained by the transport's write
// loop. It is closed when the session closes.
func (s *Session) Events() <-chan models.ServerEvent {
	return s.out
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UserID returns the bound user id, if any.
func (s *Session) UserID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.state == StateBound
}

// Deliver queues an event for the session. Delivery is fire-and-forget: a
// full buffer drops the event, and a closed session is a no-op.
func (s *Session) Deliver(ev models.ServerEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateClosed {
		return false
	}
	select {
	case s.out <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) bind(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	s.userID = userID
	s.state = StateBound
	return true
}

func (s *Session) trackRoom(roomID models.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	s.rooms[roomID] = struct{}{}
	return true
}

func (s *Session) roomIDs() []models.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]models.RoomID, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}

// close transitions to Closed and reports whether the session was bound and
// to which user. Closing twice is a no-op.
func (s *Session) close() (userID int64, wasBound, alreadyClosed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return 0, false, true
	}
	wasBound = s.state == StateBound
	userID = s.userID
	s.state = StateClosed
	close(s.out)
	return userID, wasBound, false
}
