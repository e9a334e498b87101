package storage

import (
	"context"

	"github.com/coderipple/coderipple-go/internal/model"
)

// Storage is the room registry's persistence interface. Implementations
// must keep the member index consistent with saved rooms so that
// FindRoomByMember reflects the one-room-per-connection invariant.
type Storage interface {
	// SaveRoom persists a room and refreshes its member index entries
	SaveRoom(ctx context.Context, room *model.Room) error

	// GetRoom retrieves a room by id, returning model.ErrRoomNotFound if absent
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)

	// DeleteRoom removes a room and its member index entries. Idempotent.
	DeleteRoom(ctx context.Context, id model.RoomID) error

	// RoomExists reports whether a room id is taken
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)

	// ListWaitingRooms returns all rooms in the waiting phase
	ListWaitingRooms(ctx context.Context) ([]*model.Room, error)

	// FindRoomByMember returns the room a connection belongs to,
	// or model.ErrNotInRoom if it belongs to none
	FindRoomByMember(ctx context.Context, conn model.ConnectionID) (model.RoomID, error)
}
