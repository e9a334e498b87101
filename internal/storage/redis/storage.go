package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coderipple/coderipple-go/internal/model"
	"github.com/coderipple/coderipple-go/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	// Diff against the previous version so index entries for departed
	// members are removed
	var departed []model.ConnectionID
	if old, err := s.GetRoom(ctx, room.ID); err == nil {
		for i := range old.Members {
			if room.GetMember(old.Members[i].ID) == nil {
				departed = append(departed, old.Members[i].ID)
			}
		}
	} else if !errors.Is(err, model.ErrRoomNotFound) {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, roomKey(room.ID), data, s.cfg.RoomTTL)
	if room.Phase == model.PhaseWaiting {
		pipe.SAdd(ctx, waitingRoomsKey(), string(room.ID))
	} else {
		pipe.SRem(ctx, waitingRoomsKey(), string(room.ID))
	}
	for _, conn := range departed {
		pipe.Del(ctx, memberIndexKey(conn))
	}
	for i := range room.Members {
		pipe.Set(ctx, memberIndexKey(room.Members[i].ID), string(room.ID), s.cfg.RoomTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, roomKey(id))
	pipe.SRem(ctx, waitingRoomsKey(), string(id))
	for i := range room.Members {
		pipe.Del(ctx, memberIndexKey(room.Members[i].ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	n, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) ListWaitingRooms(ctx context.Context) ([]*model.Room, error) {
	ids, err := s.client.SMembers(ctx, waitingRoomsKey()).Result()
	if err != nil {
		return nil, err
	}

	var rooms []*model.Room
	for _, id := range ids {
		room, err := s.GetRoom(ctx, model.RoomID(id))
		if err != nil {
			if errors.Is(err, model.ErrRoomNotFound) {
				// Room key expired; drop the stale index entry
				s.client.SRem(ctx, waitingRoomsKey(), id)
				continue
			}
			return nil, err
		}
		if room.Phase == model.PhaseWaiting {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (s *Storage) FindRoomByMember(ctx context.Context, conn model.ConnectionID) (model.RoomID, error) {
	id, err := s.client.Get(ctx, memberIndexKey(conn)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNotInRoom
		}
		return "", err
	}
	return model.RoomID(id), nil
}
