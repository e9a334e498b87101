package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/coderipple/coderipple-go/internal/dependencies/mocks"
	"github.com/coderipple/coderipple-go/internal/model"
	"github.com/coderipple/coderipple-go/internal/services/scoring"
	"github.com/coderipple/coderipple-go/internal/services/secret"
	"github.com/coderipple/coderipple-go/internal/storage/memory"
	"github.com/coderipple/coderipple-go/internal/testutil"
)

// recordingSink captures published events for assertions
type recordingSink struct {
	mu     sync.Mutex
	events map[model.RoomID][]model.Event
	closed []model.RoomID
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(map[model.RoomID][]model.Event)}
}

func (s *recordingSink) Publish(id model.RoomID, event model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = append(s.events[id], event)
}

func (s *recordingSink) RoomClosed(id model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, id)
}

func (s *recordingSink) eventsFor(id model.RoomID) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, len(s.events[id]))
	copy(out, s.events[id])
	return out
}

func (s *recordingSink) lastEvent(id model.RoomID) model.Event {
	events := s.eventsFor(id)
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

func (s *recordingSink) closedRooms() []model.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RoomID, len(s.closed))
	copy(out, s.closed)
	return out
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	scheduler  *mocks.MockScheduler
	random     *mocks.MockRandom
	sink       *recordingSink
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.scheduler = mocks.NewMockScheduler()
	s.random = mocks.NewMockRandom()
	s.sink = newRecordingSink()
	s.controller = NewController(
		s.storage,
		secret.New(s.random),
		scoring.New(),
		s.clock,
		s.scheduler,
		s.random,
		s.sink,
		testutil.NopLogger(),
	)
	s.ctx = context.Background()
}

// createRoom makes a room with the given id and host connection
func (s *ControllerSuite) createRoom(id string, host model.ConnectionID, username string) *model.Room {
	s.random.QueueString(id)
	room, err := s.controller.CreateRoom(s.ctx, host, username)
	s.Require().NoError(err)
	return room
}

// startedRoom creates a two-member room with secret "5271" in the active phase
func (s *ControllerSuite) startedRoom(id string) *model.Room {
	s.createRoom(id, "conn-host", "Alice")
	_, err := s.controller.JoinRoom(s.ctx, model.RoomID(id), "conn-2", "Bob")
	s.Require().NoError(err)

	// Digit picks producing the secret "5271"
	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, model.RoomID(id), "conn-host"))
	s.scheduler.FireAll()

	room, err := s.controller.GetRoom(s.ctx, model.RoomID(id))
	s.Require().NoError(err)
	s.Require().Equal(model.PhaseActive, room.Phase)
	s.Require().Equal("5271", room.Secret)
	return room
}

// CreateRoom tests

func (s *ControllerSuite) TestCreateRoomSucceeds() {
	room := s.createRoom("ABCD23", "conn-1", "Alice")

	s.Equal(model.RoomID("ABCD23"), room.ID)
	s.Equal(model.PhaseWaiting, room.Phase)
	s.Equal(model.DefaultDigitLength, room.DigitLength)
	s.Equal(model.ConnectionID("conn-1"), room.HostID)
	s.Require().Len(room.Members, 1)
	s.Equal("Alice", room.Members[0].Username)
}

func (s *ControllerSuite) TestCreateRoomFailsWhenAlreadyInRoom() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	_, err := s.controller.CreateRoom(s.ctx, "conn-1", "Alice")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *ControllerSuite) TestCreateRoomRetriesOnIDCollision() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	s.random.QueueString("ABCD23", "WXYZ78")
	room, err := s.controller.CreateRoom(s.ctx, "conn-2", "Bob")
	s.Require().NoError(err)
	s.Equal(model.RoomID("WXYZ78"), room.ID)
}

// JoinRoom tests

func (s *ControllerSuite) TestJoinRoomSucceeds() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	room, err := s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")
	s.Require().NoError(err)
	s.Len(room.Members, 2)

	event, ok := s.sink.lastEvent("ABCD23").(model.PlayerJoinedEvent)
	s.Require().True(ok)
	s.Equal("Bob", event.Player.Username)
	s.False(event.Player.IsHost)
	s.Len(event.Players, 2)
}

func (s *ControllerSuite) TestJoinRoomFailsIfNotFound() {
	_, err := s.controller.JoinRoom(s.ctx, "NOROOM", "conn-1", "Alice")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestJoinRoomFailsIfAlreadyInRoom() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	s.createRoom("WXYZ78", "conn-2", "Bob")

	_, err := s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *ControllerSuite) TestJoinRoomFailsIfGameInProgress() {
	s.startedRoom("ABCD23")

	_, err := s.controller.JoinRoom(s.ctx, "ABCD23", "conn-3", "Carol")
	s.ErrorIs(err, model.ErrGameInProgress)
}

func (s *ControllerSuite) TestJoinRoomFailsIfFull() {
	s.createRoom("ABCD23", "conn-0", "player0")
	for i := 1; i < model.MaxMembers; i++ {
		_, err := s.controller.JoinRoom(s.ctx, "ABCD23",
			model.ConnectionID("conn-"+string(rune('a'+i))), "player"+string(rune('a'+i)))
		s.Require().NoError(err)
	}

	_, err := s.controller.JoinRoom(s.ctx, "ABCD23", "conn-last", "latecomer")
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *ControllerSuite) TestJoinRoomFailsIfNameTakenCaseInsensitive() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	_, err := s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "alice")
	s.ErrorIs(err, model.ErrNameTaken)
}

// Leave tests

func (s *ControllerSuite) TestLeaveLastMemberDestroysRoom() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	s.Require().NoError(s.controller.Leave(s.ctx, "conn-1"))

	_, err := s.controller.GetRoom(s.ctx, "ABCD23")
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Equal([]model.RoomID{"ABCD23"}, s.sink.closedRooms())
}

func (s *ControllerSuite) TestLeaveHostPromotesEarliestRemainingJoiner() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	s.clock.Advance(time.Second)
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")
	s.clock.Advance(time.Second)
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-3", "Carol")

	s.Require().NoError(s.controller.Leave(s.ctx, "conn-1"))

	room, err := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("conn-2"), room.HostID)

	events := s.sink.eventsFor("ABCD23")
	s.Require().GreaterOrEqual(len(events), 2)

	hostChanged, ok := events[len(events)-2].(model.HostChangedEvent)
	s.Require().True(ok)
	s.Equal(model.ConnectionID("conn-2"), hostChanged.NewHostID)
	s.Equal("Bob", hostChanged.NewHostName)

	left, ok := events[len(events)-1].(model.PlayerLeftEvent)
	s.Require().True(ok)
	s.Equal(model.ConnectionID("conn-1"), left.PlayerID)
	s.Equal("Alice", left.Username)
	s.Len(left.Players, 2)
}

func (s *ControllerSuite) TestLeaveNonHostKeepsHost() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	s.Require().NoError(s.controller.Leave(s.ctx, "conn-2"))

	room, err := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("conn-1"), room.HostID)

	_, isLeft := s.sink.lastEvent("ABCD23").(model.PlayerLeftEvent)
	s.True(isLeft)
}

func (s *ControllerSuite) TestLeaveWhenNotInAnyRoomIsNoOp() {
	s.NoError(s.controller.Leave(s.ctx, "conn-unknown"))
}

// SetDigitLength tests

func (s *ControllerSuite) TestSetDigitLengthSucceeds() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	err := s.controller.SetDigitLength(s.ctx, "ABCD23", "conn-1", 6)
	s.Require().NoError(err)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(6, room.DigitLength)

	event, ok := s.sink.lastEvent("ABCD23").(model.SettingsUpdatedEvent)
	s.Require().True(ok)
	s.Equal(6, event.DigitLength)
}

func (s *ControllerSuite) TestSetDigitLengthFailsForNonHost() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	err := s.controller.SetDigitLength(s.ctx, "ABCD23", "conn-2", 6)
	s.ErrorIs(err, model.ErrNotHost)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(model.DefaultDigitLength, room.DigitLength)
}

func (s *ControllerSuite) TestSetDigitLengthFailsOutsideWaitingPhase() {
	s.startedRoom("ABCD23")

	err := s.controller.SetDigitLength(s.ctx, "ABCD23", "conn-host", 3)
	s.ErrorIs(err, model.ErrWrongPhase)
}

func (s *ControllerSuite) TestSetDigitLengthRejectsOutOfRange() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	s.ErrorIs(s.controller.SetDigitLength(s.ctx, "ABCD23", "conn-1", 2), model.ErrInvalidDigitLength)
	s.ErrorIs(s.controller.SetDigitLength(s.ctx, "ABCD23", "conn-1", 7), model.ErrInvalidDigitLength)
}

// StartGame tests

func (s *ControllerSuite) TestStartGameFailsForNonHost() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	s.ErrorIs(s.controller.StartGame(s.ctx, "ABCD23", "conn-2"), model.ErrNotHost)
}

func (s *ControllerSuite) TestStartGameFailsWithOnePlayer() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	s.ErrorIs(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"), model.ErrInsufficientPlayers)
}

func (s *ControllerSuite) TestStartGameEntersCountdownThenActivates() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"))

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(model.PhaseStarting, room.Phase)
	s.Equal("5271", room.Secret)
	s.True(room.StartedAt.IsZero())

	countdown, ok := s.sink.lastEvent("ABCD23").(model.GameCountdownEvent)
	s.Require().True(ok)
	s.Equal(4, countdown.DigitLength)

	tasks := s.scheduler.Tasks()
	s.Require().Len(tasks, 1)
	s.Equal(CountdownDelay, tasks[0].Delay)

	s.clock.Advance(CountdownDelay)
	tasks[0].Fire()

	room, _ = s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(model.PhaseActive, room.Phase)
	s.Equal(s.clock.Now(), room.StartedAt)

	started, ok := s.sink.lastEvent("ABCD23").(model.GameStartedEvent)
	s.Require().True(ok)
	s.Equal(4, started.DigitLength)
	s.Equal(s.clock.Now().UnixMilli(), started.StartTime)
}

func (s *ControllerSuite) TestStartGameFailsWhileStarting() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"))

	s.ErrorIs(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"), model.ErrWrongPhase)
}

func (s *ControllerSuite) TestCountdownSkippedAfterRestart() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"))
	s.Require().NoError(s.controller.RestartGame(s.ctx, "ABCD23", "conn-1"))

	// Countdown firing after the restart must not activate the room
	s.scheduler.FireAll()

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(model.PhaseWaiting, room.Phase)
	s.Empty(room.Secret)
}

// SubmitGuess tests

func (s *ControllerSuite) TestSubmitGuessFailsOutsideActivePhase() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-1", "1234")
	s.ErrorIs(err, model.ErrWrongPhase)
}

func (s *ControllerSuite) TestSubmitGuessFailsForNonMember() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-stranger", "1234")
	s.ErrorIs(err, model.ErrNotAMember)
}

func (s *ControllerSuite) TestSubmitGuessScoresAndBroadcasts() {
	s.startedRoom("ABCD23")

	outcome, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.Require().NoError(err)
	s.Equal(1, outcome.Result.Bulls)
	s.Equal(1, outcome.Result.Cows)
	s.Equal(1, outcome.GuessNumber)
	s.False(outcome.Won)

	events := s.sink.eventsFor("ABCD23")
	s.Require().GreaterOrEqual(len(events), 2)

	guessed, ok := events[len(events)-2].(model.PlayerGuessedEvent)
	s.Require().True(ok)
	s.Equal("Bob", guessed.Username)
	s.Equal(1, guessed.GuessCount)
	s.Equal(1, guessed.Bulls)
	s.Equal(1, guessed.Cows)

	board, ok := events[len(events)-1].(model.LeaderboardUpdateEvent)
	s.Require().True(ok)
	s.Len(board.Leaderboard, 2)
}

func (s *ControllerSuite) TestSubmitGuessRateLimited() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.Require().NoError(err)

	s.clock.Advance(500 * time.Millisecond)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "4321")
	s.ErrorIs(err, model.ErrRateLimited)

	s.clock.Advance(500 * time.Millisecond)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "4321")
	s.NoError(err)
}

func (s *ControllerSuite) TestSubmitGuessRejectsRepeatGuess() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.Require().NoError(err)

	s.clock.Advance(time.Second)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.ErrorIs(err, model.ErrGuessAlreadyTried)
}

func (s *ControllerSuite) TestSubmitGuessValidationDoesNotMutateState() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "12a4")
	s.ErrorIs(err, model.ErrGuessNotDigits)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	member := room.GetMember("conn-2")
	s.Empty(member.Guesses)
	s.True(member.LastGuessAt.IsZero())

	// An invalid guess must not consume the rate-limit window
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.NoError(err)
}

func (s *ControllerSuite) TestWinningGuessFinishesGame() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.Require().NoError(err)

	s.clock.Advance(90 * time.Second)
	outcome, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "5271")
	s.Require().NoError(err)
	s.True(outcome.Won)
	s.Equal(4, outcome.Result.Bulls)
	s.Equal(2, outcome.GuessNumber)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(model.PhaseFinished, room.Phase)
	s.Require().NotNil(room.Winner)
	s.Equal("Bob", room.Winner.Username)
	s.Equal(2, room.Winner.Attempts)
	s.Equal(90, room.Winner.ElapsedSeconds)

	won, ok := s.sink.lastEvent("ABCD23").(model.GameWonEvent)
	s.Require().True(ok)
	s.Equal("5271", won.Secret)
	s.Equal("Bob", won.Winner.Username)
}

func (s *ControllerSuite) TestGuessAfterWinRejected() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "5271")
	s.Require().NoError(err)

	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-host", "5271")
	s.ErrorIs(err, model.ErrWrongPhase)
}

func (s *ControllerSuite) TestFinishedRoomReapedAfterWindow() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "5271")
	s.Require().NoError(err)

	tasks := s.scheduler.Tasks()
	reaper := tasks[len(tasks)-1]
	s.Equal(FinishedRoomLifetime, reaper.Delay)

	// The room stays queryable until the reaper fires
	_, err = s.controller.GetRoom(s.ctx, "ABCD23")
	s.Require().NoError(err)

	reaper.Fire()

	_, err = s.controller.GetRoom(s.ctx, "ABCD23")
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Contains(s.sink.closedRooms(), model.RoomID("ABCD23"))
}

func (s *ControllerSuite) TestConcurrentWinningGuessesProduceOneWinner() {
	s.startedRoom("ABCD23")

	var wg sync.WaitGroup
	outcomes := make([]*GuessOutcome, 2)
	errs := make([]error, 2)
	conns := []model.ConnectionID{"conn-host", "conn-2"}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = s.controller.SubmitGuess(s.ctx, "ABCD23", conns[i], "5271")
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < 2; i++ {
		if errs[i] == nil && outcomes[i].Won {
			wins++
		} else {
			s.ErrorIs(errs[i], model.ErrWrongPhase)
		}
	}
	s.Equal(1, wins)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Require().NotNil(room.Winner)
	s.Equal(1, room.Winner.Attempts)
}

// RestartGame tests

func (s *ControllerSuite) TestRestartGameFailsForNonHost() {
	s.startedRoom("ABCD23")

	s.ErrorIs(s.controller.RestartGame(s.ctx, "ABCD23", "conn-2"), model.ErrNotHost)
}

func (s *ControllerSuite) TestRestartGameResetsState() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "5271")
	s.Require().NoError(err)

	s.Require().NoError(s.controller.RestartGame(s.ctx, "ABCD23", "conn-host"))

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Equal(model.PhaseWaiting, room.Phase)
	s.Empty(room.Secret)
	s.Nil(room.Winner)
	s.True(room.StartedAt.IsZero())
	s.Len(room.Members, 2)
	for i := range room.Members {
		s.Empty(room.Members[i].Guesses)
		s.Empty(room.Members[i].Results)
	}

	event, ok := s.sink.lastEvent("ABCD23").(model.GameRestartedEvent)
	s.Require().True(ok)
	s.Equal(model.PhaseWaiting, event.Room.Phase)
}

func (s *ControllerSuite) TestRestartCancelsPendingReap() {
	s.startedRoom("ABCD23")

	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "5271")
	s.Require().NoError(err)

	s.Require().NoError(s.controller.RestartGame(s.ctx, "ABCD23", "conn-host"))

	// The reap window elapsing after a restart must not destroy the room
	s.scheduler.FireAll()

	_, err = s.controller.GetRoom(s.ctx, "ABCD23")
	s.NoError(err)
}

// Leaderboard tests

func (s *ControllerSuite) TestLeaderboardOrdering() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	s.clock.Advance(time.Second)
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")
	s.clock.Advance(time.Second)
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-3", "Carol")

	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"))
	s.scheduler.FireAll()

	// Alice: one guess, 1 bull. Bob: one guess, 2 bulls. Carol: two
	// guesses, best 1 bull.
	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-1", "1234")
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "5217")
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-3", "1234")
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-3", "9271")
	s.Require().NoError(err)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	board := room.Leaderboard()
	s.Require().Len(board, 3)

	// Carol's second guess "9271" scores 3 bulls, so she leads; Bob's 2
	// bulls beat Alice's 1.
	s.Equal("Carol", board[0].Username)
	s.Equal("Bob", board[1].Username)
	s.Equal("Alice", board[2].Username)
}

func (s *ControllerSuite) TestLeaderboardTiesKeepJoinOrder() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")

	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, "ABCD23", "conn-1"))
	s.scheduler.FireAll()

	// Identical scores and counts: join order decides
	_, err := s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-1", "1234")
	s.Require().NoError(err)
	_, err = s.controller.SubmitGuess(s.ctx, "ABCD23", "conn-2", "1234")
	s.Require().NoError(err)

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	board := room.Leaderboard()
	s.Equal("Alice", board[0].Username)
	s.Equal("Bob", board[1].Username)
}

// Chat tests

func (s *ControllerSuite) TestPostChatBroadcasts() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	s.controller.PostChat(s.ctx, "ABCD23", "conn-1", "  hello room  ")

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Require().Len(room.Chat, 1)
	s.Equal("hello room", room.Chat[0].Text)

	event, ok := s.sink.lastEvent("ABCD23").(model.ChatMessageEvent)
	s.Require().True(ok)
	s.Equal("Alice", event.Username)
	s.Equal("hello room", event.Text)
}

func (s *ControllerSuite) TestPostChatDropsInvalidInputSilently() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	before := len(s.sink.eventsFor("ABCD23"))

	s.controller.PostChat(s.ctx, "NOROOM", "conn-1", "hello")
	s.controller.PostChat(s.ctx, "ABCD23", "conn-stranger", "hello")
	s.controller.PostChat(s.ctx, "ABCD23", "conn-1", "   ")

	long := make([]byte, model.MaxChatLength+1)
	for i := range long {
		long[i] = 'x'
	}
	s.controller.PostChat(s.ctx, "ABCD23", "conn-1", string(long))

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Empty(room.Chat)
	s.Len(s.sink.eventsFor("ABCD23"), before)
}

func (s *ControllerSuite) TestChatLogCapped() {
	s.createRoom("ABCD23", "conn-1", "Alice")

	for i := 0; i < model.ChatLogCap+10; i++ {
		s.controller.PostChat(s.ctx, "ABCD23", "conn-1", "message")
	}

	room, _ := s.controller.GetRoom(s.ctx, "ABCD23")
	s.Len(room.Chat, model.ChatLogCap)
}

// ListPublicRooms tests

func (s *ControllerSuite) TestListPublicRoomsOnlyShowsWaiting() {
	s.createRoom("ABCD23", "conn-1", "Alice")
	s.clock.Advance(time.Second)
	s.createRoom("WXYZ78", "conn-2", "Bob")
	_, _ = s.controller.JoinRoom(s.ctx, "WXYZ78", "conn-3", "Carol")

	s.random.QueueIntn(4, 2, 5, 1)
	s.Require().NoError(s.controller.StartGame(s.ctx, "WXYZ78", "conn-2"))

	summaries, err := s.controller.ListPublicRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(model.RoomID("ABCD23"), summaries[0].ID)
	s.Equal(1, summaries[0].PlayerCount)
	s.Equal(model.MaxMembers, summaries[0].MaxPlayers)
	s.Equal("Alice", summaries[0].HostName)
}

// Listing must stay safe while another connection churns the same room's
// membership; storage hands each caller its own copy of the room
func (s *ControllerSuite) TestListPublicRoomsDuringMembershipChurn() {
	s.createRoom("ABCD23", "conn-host", "Alice")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = s.controller.JoinRoom(s.ctx, "ABCD23", "conn-2", "Bob")
			_ = s.controller.Leave(s.ctx, "conn-2")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = s.controller.ListPublicRooms(s.ctx)
		}
	}()
	wg.Wait()

	summaries, err := s.controller.ListPublicRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal("Alice", summaries[0].HostName)
}
