package room

import (
	"sync"

	"github.com/coderipple/coderipple-go/internal/model"
)

// lockTable serializes operations per room without any cross-room
// contention. Entries are reference counted so the table does not grow
// with the lifetime history of rooms.
type lockTable struct {
	mu      sync.Mutex
	entries map[model.RoomID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[model.RoomID]*lockEntry)}
}

// Acquire locks the given room and returns the release function
func (t *lockTable) Acquire(id model.RoomID) func() {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if !ok {
		entry = &lockEntry{}
		t.entries[id] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		t.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(t.entries, id)
		}
		t.mu.Unlock()
	}
}
