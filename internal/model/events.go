package model

import "time"

// Event is a broadcast payload destined for every member of a room.
// EventName is the wire-level message type.
type Event interface {
	EventName() string
}

// PlayerJoinedEvent notifies existing members of a new arrival
type PlayerJoinedEvent struct {
	Player  PlayerSummary   `json:"player"`
	Players []PlayerSummary `json:"players"`
}

func (PlayerJoinedEvent) EventName() string { return "playerJoined" }

// PlayerLeftEvent notifies remaining members of a departure
type PlayerLeftEvent struct {
	PlayerID ConnectionID    `json:"playerId"`
	Username string          `json:"username"`
	Players  []PlayerSummary `json:"players"`
}

func (PlayerLeftEvent) EventName() string { return "playerLeft" }

// HostChangedEvent fires when host privileges move to another member
type HostChangedEvent struct {
	NewHostID   ConnectionID `json:"newHostId"`
	NewHostName string       `json:"newHostName"`
}

func (HostChangedEvent) EventName() string { return "hostChanged" }

// SettingsUpdatedEvent fires when the host changes room settings
type SettingsUpdatedEvent struct {
	DigitLength int `json:"digitLength"`
}

func (SettingsUpdatedEvent) EventName() string { return "settingsUpdated" }

// GameCountdownEvent fires when the host starts the game
type GameCountdownEvent struct {
	DigitLength int `json:"digitLength"`
}

func (GameCountdownEvent) EventName() string { return "gameCountdown" }

// GameStartedEvent fires when the countdown completes and guessing opens
type GameStartedEvent struct {
	DigitLength int   `json:"digitLength"`
	StartTime   int64 `json:"startTime"`
}

func (GameStartedEvent) EventName() string { return "gameStarted" }

// PlayerGuessedEvent announces a scored guess without revealing the guess itself
type PlayerGuessedEvent struct {
	PlayerID   ConnectionID `json:"playerId"`
	Username   string       `json:"username"`
	GuessCount int          `json:"guessCount"`
	Bulls      int          `json:"bulls"`
	Cows       int          `json:"cows"`
}

func (PlayerGuessedEvent) EventName() string { return "playerGuessed" }

// LeaderboardUpdateEvent carries the recomputed room ranking
type LeaderboardUpdateEvent struct {
	Leaderboard []PlayerSummary `json:"leaderboard"`
}

func (LeaderboardUpdateEvent) EventName() string { return "leaderboardUpdate" }

// GameWonEvent announces the winner and reveals the secret
type GameWonEvent struct {
	Winner Winner `json:"winner"`
	Secret string `json:"secret"`
}

func (GameWonEvent) EventName() string { return "gameWon" }

// GameRestartedEvent carries the refreshed room snapshot after a restart
type GameRestartedEvent struct {
	Room Snapshot `json:"room"`
}

func (GameRestartedEvent) EventName() string { return "gameRestarted" }

// ChatMessageEvent relays a chat message to all members, sender included
type ChatMessageEvent struct {
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (ChatMessageEvent) EventName() string { return "chatMessage" }
