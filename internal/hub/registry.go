package hub

import (
	"log/slog"

	"parlor/internal/models"
)

// registry is the authoritative mapping of room ids to metadata and
// membership, persisted lazily. Creation is insert-if-absent: the first
// write wins and a concurrent identical insert is a no-op, never an error
// surfaced to the caller.
type registry struct {
	store Store
}

func (r *registry) ensure(room models.Room) {
	if err := r.store.InsertRoomIfAbsent(room); err != nil {
		slog.Error("failed to persist room", "room_id", room.ID, "error", err)
	}
}

// addMember records the membership. Idempotent; a persistence failure is
// logged and does not roll back the in-memory join.
func (r *registry) addMember(roomID models.RoomID, userID int64) {
	if err := r.store.InsertMembershipIfAbsent(roomID, userID); err != nil {
		slog.Error("failed to persist room membership",
			"room_id", roomID, "user_id", userID, "error", err)
	}
}

func (r *registry) listRooms() ([]models.Room, error) {
	return r.store.ListRooms()
}
