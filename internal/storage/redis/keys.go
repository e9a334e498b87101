package redis

import (
	"fmt"

	"github.com/coderipple/coderipple-go/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "coderipple"

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// waitingRoomsKey returns the Redis key for the SET of waiting room ids
func waitingRoomsKey() string {
	return fmt.Sprintf("%s:idx:waiting_rooms", keyPrefix)
}

// memberIndexKey returns the Redis key for the connection -> room index
func memberIndexKey(conn model.ConnectionID) string {
	return fmt.Sprintf("%s:idx:member:%s", keyPrefix, conn)
}
