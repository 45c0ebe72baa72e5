package hub

import (
	"sync"
	"time"

	"parlor/internal/models"
)

type typingKey struct {
	room models.RoomID
	user int64
}

type typingState struct {
	timer    *time.Timer
	username string
	sess     *Session
}

// debouncer holds one live timer per (room, user). A newer typing event
// supersedes the previous timer; expiry without renewal emits a single
// "stopped typing" signal. State is process-local and never persisted.
// An armed timer outlives its session: the originator disconnecting does
// not cancel the indicator early.
type debouncer struct {
	window  time.Duration
	expired func(roomID models.RoomID, username string, sender *Session)

	mu     sync.Mutex
	timers map[typingKey]*typingState
}

func newDebouncer(window time.Duration, expired func(models.RoomID, string, *Session)) *debouncer {
	return &debouncer{
		window:  window,
		expired: expired,
		timers:  make(map[typingKey]*typingState),
	}
}

func (d *debouncer) arm(roomID models.RoomID, userID int64, username string, sess *Session) {
	key := typingKey{room: roomID, user: userID}

	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.timers[key]; ok {
		prev.timer.Stop()
	}
	state := &typingState{username: username, sess: sess}
	state.timer = time.AfterFunc(d.window, func() { d.expire(key, state) })
	d.timers[key] = state
}

// cancel stops the pending timer without emitting anything.
func (d *debouncer) cancel(roomID models.RoomID, userID int64) {
	key := typingKey{room: roomID, user: userID}

	d.mu.Lock()
	defer d.mu.Unlock()

	if state, ok := d.timers[key]; ok {
		state.timer.Stop()
		delete(d.timers, key)
	}
}

func (d *debouncer) expire(key typingKey, state *typingState) {
	d.mu.Lock()
	if d.timers[key] != state {
		// Superseded or cancelled while the callback was already queued.
		d.mu.Unlock()
		return
	}
	delete(d.timers, key)
	d.mu.Unlock()

	d.expired(key.room, state.username, state.sess)
}
