package room

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coderipple/coderipple-go/internal/dependencies/clock"
	"github.com/coderipple/coderipple-go/internal/dependencies/random"
	"github.com/coderipple/coderipple-go/internal/model"
	"github.com/coderipple/coderipple-go/internal/services/scoring"
	"github.com/coderipple/coderipple-go/internal/services/secret"
	"github.com/coderipple/coderipple-go/internal/storage"
)

const (
	// RoomIDLength is the length of generated room ids
	RoomIDLength = 6
	// RoomIDAlphabet is the characters used in room ids (avoid confusing chars)
	RoomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// GuessRateLimit is the minimum gap between one member's guesses
	GuessRateLimit = time.Second
	// CountdownDelay is how long the starting phase lasts before guessing opens
	CountdownDelay = 3500 * time.Millisecond
	// FinishedRoomLifetime is how long a finished room stays queryable
	// before it is reaped
	FinishedRoomLifetime = 60 * time.Second
)

// EventSink receives room-wide broadcast events. The controller never
// talks to connections directly; fan-out is the sink's concern.
type EventSink interface {
	// Publish delivers an event to every current member of the room
	Publish(id model.RoomID, event model.Event)
	// RoomClosed signals that the room no longer exists
	RoomClosed(id model.RoomID)
}

// GuessOutcome is the direct reply to a guessing member
type GuessOutcome struct {
	Result      model.GuessResult `json:"result"`
	GuessNumber int               `json:"guessNumber"`
	Won         bool              `json:"-"`
}

// Controller is the authority over room lifecycle and game state. Every
// operation against one room runs under that room's lock, including the
// deferred countdown and post-win reap; operations on different rooms
// never contend.
type Controller struct {
	storage   storage.Storage
	secrets   *secret.Generator
	scoring   *scoring.Service
	clock     clock.Clock
	scheduler clock.Scheduler
	random    random.Random
	sink      EventSink
	logger    *slog.Logger

	locks *lockTable

	timersMu   sync.Mutex
	countdowns map[model.RoomID]clock.Task
	reapers    map[model.RoomID]clock.Task
}

// NewController creates a new room Controller
func NewController(
	store storage.Storage,
	secrets *secret.Generator,
	scorer *scoring.Service,
	clk clock.Clock,
	scheduler clock.Scheduler,
	rnd random.Random,
	sink EventSink,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    store,
		secrets:    secrets,
		scoring:    scorer,
		clock:      clk,
		scheduler:  scheduler,
		random:     rnd,
		sink:       sink,
		logger:     logger.With(slog.String("component", "room")),
		locks:      newLockTable(),
		countdowns: make(map[model.RoomID]clock.Task),
		reapers:    make(map[model.RoomID]clock.Task),
	}
}

// CreateRoom builds a waiting room with the founder as sole member and host
func (c *Controller) CreateRoom(ctx context.Context, conn model.ConnectionID, username string) (*model.Room, error) {
	if _, err := c.storage.FindRoomByMember(ctx, conn); err == nil {
		return nil, model.ErrAlreadyInRoom
	} else if !errors.Is(err, model.ErrNotInRoom) {
		return nil, err
	}

	now := c.clock.Now()

	// Generate unique room id
	var id model.RoomID
	for {
		id = model.RoomID(c.random.String(RoomIDLength, RoomIDAlphabet))
		exists, err := c.storage.RoomExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	room := &model.Room{
		ID:     id,
		HostID: conn,
		Members: []model.Member{
			{ID: conn, Username: username, JoinedAt: now},
		},
		DigitLength: model.DefaultDigitLength,
		Phase:       model.PhaseWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	release := c.locks.Acquire(id)
	defer release()

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	c.logger.Info("room created",
		slog.String("room", string(id)),
		slog.String("host", string(conn)),
		slog.String("username", username),
	)

	return room, nil
}

// GetRoom retrieves a room by id
func (c *Controller) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return c.storage.GetRoom(ctx, id)
}

// FindRoomByMember returns the room a connection currently belongs to
func (c *Controller) FindRoomByMember(ctx context.Context, conn model.ConnectionID) (model.RoomID, error) {
	return c.storage.FindRoomByMember(ctx, conn)
}

// ListPublicRooms returns summaries of all joinable rooms. Rooms with a
// game in progress are not discoverable.
func (c *Controller) ListPublicRooms(ctx context.Context) ([]model.Summary, error) {
	rooms, err := c.storage.ListWaitingRooms(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	summaries := make([]model.Summary, len(rooms))
	for i, room := range rooms {
		summaries[i] = room.Summary()
	}
	return summaries, nil
}

// JoinRoom adds a connection to a waiting room
func (c *Controller) JoinRoom(ctx context.Context, id model.RoomID, conn model.ConnectionID, username string) (*model.Room, error) {
	if _, err := c.storage.FindRoomByMember(ctx, conn); err == nil {
		return nil, model.ErrAlreadyInRoom
	} else if !errors.Is(err, model.ErrNotInRoom) {
		return nil, err
	}

	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.Phase != model.PhaseWaiting {
		return nil, model.ErrGameInProgress
	}
	if len(room.Members) >= model.MaxMembers {
		return nil, model.ErrRoomFull
	}
	if room.HasUsername(username) {
		return nil, model.ErrNameTaken
	}

	now := c.clock.Now()
	room.Members = append(room.Members, model.Member{
		ID:       conn,
		Username: username,
		JoinedAt: now,
	})
	room.UpdatedAt = now

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	players := room.PlayerSummaries()
	c.sink.Publish(id, model.PlayerJoinedEvent{
		Player:  players[len(players)-1],
		Players: players,
	})

	c.logger.Info("player joined",
		slog.String("room", string(id)),
		slog.String("username", username),
		slog.Int("members", len(room.Members)),
	)

	return room, nil
}

// Leave removes a connection from whichever room it belongs to. It covers
// both an explicit leave and a dropped connection; absent membership is
// not an error. The last member's departure destroys the room; a departing
// host hands privileges to the earliest remaining joiner.
func (c *Controller) Leave(ctx context.Context, conn model.ConnectionID) error {
	id, err := c.storage.FindRoomByMember(ctx, conn)
	if err != nil {
		if errors.Is(err, model.ErrNotInRoom) {
			return nil
		}
		return err
	}

	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return nil
		}
		return err
	}

	member := room.GetMember(conn)
	if member == nil {
		return nil
	}
	username := member.Username
	wasHost := conn == room.HostID

	for i := range room.Members {
		if room.Members[i].ID == conn {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			break
		}
	}

	if len(room.Members) == 0 {
		return c.destroyRoomLocked(ctx, id)
	}

	if wasHost {
		// Membership order is join order, so the promotion is deterministic
		room.HostID = room.Members[0].ID
	}

	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return err
	}

	if wasHost {
		c.sink.Publish(id, model.HostChangedEvent{
			NewHostID:   room.HostID,
			NewHostName: room.Members[0].Username,
		})
	}
	c.sink.Publish(id, model.PlayerLeftEvent{
		PlayerID: conn,
		Username: username,
		Players:  room.PlayerSummaries(),
	})

	c.logger.Info("player left",
		slog.String("room", string(id)),
		slog.String("username", username),
		slog.Bool("host_changed", wasHost),
		slog.Int("members", len(room.Members)),
	)

	return nil
}

// SetDigitLength changes the room's secret length. Host only, waiting
// phase only, n must be 3-6.
func (c *Controller) SetDigitLength(ctx context.Context, id model.RoomID, conn model.ConnectionID, n int) error {
	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.HostID != conn {
		return model.ErrNotHost
	}
	if room.Phase != model.PhaseWaiting {
		return model.ErrWrongPhase
	}
	if n < model.MinDigitLength || n > model.MaxDigitLength {
		return model.ErrInvalidDigitLength
	}

	room.DigitLength = n
	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return err
	}

	c.sink.Publish(id, model.SettingsUpdatedEvent{DigitLength: n})
	return nil
}

// StartGame chooses a secret, resets per-member guess state, and begins the
// countdown. The transition to the active phase happens via the scheduler
// after CountdownDelay; the caller is never blocked on it.
func (c *Controller) StartGame(ctx context.Context, id model.RoomID, conn model.ConnectionID) error {
	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.HostID != conn {
		return model.ErrNotHost
	}
	if room.Phase != model.PhaseWaiting {
		return model.ErrWrongPhase
	}
	if len(room.Members) < 2 {
		return model.ErrInsufficientPlayers
	}

	room.Secret = c.secrets.Generate(room.DigitLength)
	room.Phase = model.PhaseStarting
	for i := range room.Members {
		room.Members[i].Guesses = nil
		room.Members[i].Results = nil
		room.Members[i].LastGuessAt = time.Time{}
	}
	room.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return err
	}

	c.sink.Publish(id, model.GameCountdownEvent{DigitLength: room.DigitLength})

	c.setCountdown(id, c.scheduler.AfterFunc(CountdownDelay, func() {
		c.activate(id)
	}))

	c.logger.Info("game starting",
		slog.String("room", string(id)),
		slog.Int("digit_length", room.DigitLength),
		slog.Int("members", len(room.Members)),
	)

	return nil
}

// activate completes the countdown and opens the room for guessing
func (c *Controller) activate(id model.RoomID) {
	ctx := context.Background()

	release := c.locks.Acquire(id)
	defer release()

	c.clearCountdown(id)

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return
	}
	// The room may have been restarted or emptied during the countdown
	if room.Phase != model.PhaseStarting {
		return
	}

	now := c.clock.Now()
	room.Phase = model.PhaseActive
	room.StartedAt = now
	room.UpdatedAt = now

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		c.logger.Error("failed to activate room",
			slog.String("room", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}

	c.sink.Publish(id, model.GameStartedEvent{
		DigitLength: room.DigitLength,
		StartTime:   now.UnixMilli(),
	})

	c.logger.Info("game started", slog.String("room", string(id)))
}

// SubmitGuess validates, rate-limits, and scores one guess. The first
// guess matching every digit wins the game; the per-room lock guarantees
// a second concurrent winning guess observes the finished phase instead.
func (c *Controller) SubmitGuess(ctx context.Context, id model.RoomID, conn model.ConnectionID, guess string) (*GuessOutcome, error) {
	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.Phase != model.PhaseActive {
		return nil, model.ErrWrongPhase
	}
	member := room.GetMember(conn)
	if member == nil {
		return nil, model.ErrNotAMember
	}

	now := c.clock.Now()
	if !member.LastGuessAt.IsZero() && now.Sub(member.LastGuessAt) < GuessRateLimit {
		return nil, model.ErrRateLimited
	}

	if err := scoring.ValidateGuess(guess, room.DigitLength, member.Guesses); err != nil {
		return nil, err
	}

	member.LastGuessAt = now
	member.Guesses = append(member.Guesses, guess)
	result := c.scoring.Score(room.Secret, guess)
	member.Results = append(member.Results, result)
	room.UpdatedAt = now

	won := c.scoring.IsWinning(result, room.DigitLength)
	if won {
		elapsed := int(math.Round(now.Sub(room.StartedAt).Seconds()))
		room.Phase = model.PhaseFinished
		room.Winner = &model.Winner{
			ID:             conn,
			Username:       member.Username,
			Attempts:       len(member.Results),
			ElapsedSeconds: elapsed,
		}
	}

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	c.sink.Publish(id, model.PlayerGuessedEvent{
		PlayerID:   conn,
		Username:   member.Username,
		GuessCount: len(member.Results),
		Bulls:      result.Bulls,
		Cows:       result.Cows,
	})
	c.sink.Publish(id, model.LeaderboardUpdateEvent{Leaderboard: room.Leaderboard()})

	if won {
		c.sink.Publish(id, model.GameWonEvent{Winner: *room.Winner, Secret: room.Secret})

		c.setReaper(id, c.scheduler.AfterFunc(FinishedRoomLifetime, func() {
			c.reapFinished(id)
		}))

		c.logger.Info("game won",
			slog.String("room", string(id)),
			slog.String("username", member.Username),
			slog.Int("attempts", len(member.Results)),
			slog.Int("elapsed_seconds", room.Winner.ElapsedSeconds),
		)
	}

	return &GuessOutcome{
		Result:      result,
		GuessNumber: len(member.Results),
		Won:         won,
	}, nil
}

// reapFinished destroys a room that has stayed in the finished phase for
// the full post-win window
func (c *Controller) reapFinished(id model.RoomID) {
	ctx := context.Background()

	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return
	}
	// A restart during the window keeps the room alive
	if room.Phase != model.PhaseFinished {
		return
	}

	if err := c.destroyRoomLocked(ctx, id); err != nil {
		c.logger.Error("failed to reap finished room",
			slog.String("room", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}
	c.logger.Info("finished room reaped", slog.String("room", string(id)))
}

// RestartGame resets a room to the waiting phase, keeping membership and
// settings. Host only. A pending post-win reap is cancelled.
func (c *Controller) RestartGame(ctx context.Context, id model.RoomID, conn model.ConnectionID) error {
	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	if room.HostID != conn {
		return model.ErrNotHost
	}

	c.cancelTimers(id)

	room.Phase = model.PhaseWaiting
	room.Secret = ""
	room.StartedAt = time.Time{}
	room.Winner = nil
	for i := range room.Members {
		room.Members[i].Guesses = nil
		room.Members[i].Results = nil
		room.Members[i].LastGuessAt = time.Time{}
	}
	room.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return err
	}

	c.sink.Publish(id, model.GameRestartedEvent{Room: room.Snapshot()})

	c.logger.Info("game restarted", slog.String("room", string(id)))
	return nil
}

// PostChat appends a chat message and relays it to the whole room,
// sender included. Invalid input is dropped silently: a missing room, a
// non-member sender, or text that is blank or too long after trimming.
func (c *Controller) PostChat(ctx context.Context, id model.RoomID, conn model.ConnectionID, text string) {
	release := c.locks.Acquire(id)
	defer release()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return
	}
	member := room.GetMember(conn)
	if member == nil {
		return
	}

	text = strings.TrimSpace(text)
	if text == "" || len(text) > model.MaxChatLength {
		return
	}

	msg := model.ChatMessage{
		Username:  member.Username,
		Text:      text,
		Timestamp: c.clock.Now(),
	}
	room.Chat = append(room.Chat, msg)
	if len(room.Chat) > model.ChatLogCap {
		room.Chat = room.Chat[len(room.Chat)-model.ChatLogCap:]
	}
	room.UpdatedAt = msg.Timestamp

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		c.logger.Error("failed to save chat message",
			slog.String("room", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}

	c.sink.Publish(id, model.ChatMessageEvent{
		Username:  msg.Username,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
}

// destroyRoomLocked deletes the room and tears down its timers and hub.
// The caller must hold the room's lock.
func (c *Controller) destroyRoomLocked(ctx context.Context, id model.RoomID) error {
	c.cancelTimers(id)
	if err := c.storage.DeleteRoom(ctx, id); err != nil {
		return err
	}
	c.sink.RoomClosed(id)
	c.logger.Info("room destroyed", slog.String("room", string(id)))
	return nil
}

// Timer bookkeeping. Tasks are keyed by room so a room's deletion or
// restart can cancel work scheduled for it.

func (c *Controller) setCountdown(id model.RoomID, task clock.Task) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if old, ok := c.countdowns[id]; ok {
		old.Stop()
	}
	c.countdowns[id] = task
}

func (c *Controller) clearCountdown(id model.RoomID) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	delete(c.countdowns, id)
}

func (c *Controller) setReaper(id model.RoomID, task clock.Task) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if old, ok := c.reapers[id]; ok {
		old.Stop()
	}
	c.reapers[id] = task
}

func (c *Controller) cancelTimers(id model.RoomID) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if task, ok := c.countdowns[id]; ok {
		task.Stop()
		delete(c.countdowns, id)
	}
	if task, ok := c.reapers[id]; ok {
		task.Stop()
		delete(c.reapers, id)
	}
}

// Interface for dependency injection
type ControllerInterface interface {
	CreateRoom(ctx context.Context, conn model.ConnectionID, username string) (*model.Room, error)
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	FindRoomByMember(ctx context.Context, conn model.ConnectionID) (model.RoomID, error)
	ListPublicRooms(ctx context.Context) ([]model.Summary, error)
	JoinRoom(ctx context.Context, id model.RoomID, conn model.ConnectionID, username string) (*model.Room, error)
	Leave(ctx context.Context, conn model.ConnectionID) error
	SetDigitLength(ctx context.Context, id model.RoomID, conn model.ConnectionID, n int) error
	StartGame(ctx context.Context, id model.RoomID, conn model.ConnectionID) error
	SubmitGuess(ctx context.Context, id model.RoomID, conn model.ConnectionID, guess string) (*GuessOutcome, error)
	RestartGame(ctx context.Context, id model.RoomID, conn model.ConnectionID) error
	PostChat(ctx context.Context, id model.RoomID, conn model.ConnectionID, text string)
}

var _ ControllerInterface = (*Controller)(nil)
