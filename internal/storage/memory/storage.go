package memory

import (
	"context"
	"sync"

	"github.com/coderipple/coderipple-go/internal/model"
	"github.com/coderipple/coderipple-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Rooms are deep-copied on both save and load so callers never share
// mutable state with the store or with each other, mirroring the
// isolation the Redis implementation gets from its JSON round-trip.
type Storage struct {
	mu sync.RWMutex

	rooms       map[model.RoomID]*model.Room
	memberIndex map[model.ConnectionID]model.RoomID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:       make(map[model.RoomID]*model.Room),
		memberIndex: make(map[model.ConnectionID]model.RoomID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[room.ID] = room.Clone()

	// Rebuild this room's slice of the member index so entries for
	// departed members do not linger
	for conn, id := range s.memberIndex {
		if id == room.ID {
			delete(s.memberIndex, conn)
		}
	}
	for i := range room.Members {
		s.memberIndex[room.Members[i].ID] = room.ID
	}
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	for conn, roomID := range s.memberIndex {
		if roomID == id {
			delete(s.memberIndex, conn)
		}
	}
	return nil
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok, nil
}

func (s *Storage) ListWaitingRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []*model.Room
	for _, room := range s.rooms {
		if room.Phase == model.PhaseWaiting {
			rooms = append(rooms, room.Clone())
		}
	}
	return rooms, nil
}

func (s *Storage) FindRoomByMember(ctx context.Context, conn model.ConnectionID) (model.RoomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.memberIndex[conn]
	if !ok {
		return "", model.ErrNotInRoom
	}
	return id, nil
}
