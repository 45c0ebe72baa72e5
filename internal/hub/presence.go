package hub

import (
	"log/slog"

	"parlor/internal/models"
)

// presence tracks the persisted online flag per user. Every flag mutation
// triggers exactly one global refresh signal, never a per-room diff: clients
// re-fetch the full user list, so consistency is eventual and coalesced.
//
// The flag carries no connection refcount: the last disconnect of any bound
// connection marks the user offline even if another connection for the same
// user is still open.
type presence struct {
	store   Store
	refresh func()
}

func (p *presence) markOnline(userID int64) {
	if err := p.store.SetOnline(userID, true); err != nil {
		slog.Error("failed to persist online flag", "user_id", userID, "error", err)
	}
	p.refresh()
}

func (p *presence) markOffline(userID int64) {
	if err := p.store.SetOnline(userID, false); err != nil {
		slog.Error("failed to persist offline flag", "user_id", userID, "error", err)
	}
	p.refresh()
}

func (p *presence) listUsers() ([]models.User, error) {
	return p.store.ListUsers()
}
