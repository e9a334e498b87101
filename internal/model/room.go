package model

import (
	"sort"
	"strings"
	"time"
)

// ConnectionID identifies a live client connection. The engine treats it as
// an opaque value: it is only compared for equality and used as a map key.
type ConnectionID string

// RoomID is a short, human-shareable room identifier
type RoomID string

// Phase represents the lifecycle state of a room's game
type Phase string

const (
	PhaseWaiting  Phase = "waiting"  // Room open, game not started
	PhaseStarting Phase = "starting" // Countdown running, secret already chosen
	PhaseActive   Phase = "active"   // Guessing in progress
	PhaseFinished Phase = "finished" // A winner has been recorded
)

// Room limits and defaults
const (
	MaxMembers         = 16
	MinDigitLength     = 3
	MaxDigitLength     = 6
	DefaultDigitLength = 4
	MaxUsernameLength  = 20
	MaxChatLength      = 200
	ChatLogCap         = 100
)

// GuessResult records a single scored guess
type GuessResult struct {
	Guess string `json:"guess"`
	Bulls int    `json:"bulls"`
	Cows  int    `json:"cows"`
}

// Member is a player's membership in a room, including per-game guess state.
// Guess state is only populated between game start and restart.
type Member struct {
	ID          ConnectionID  `json:"id"`
	Username    string        `json:"username"`
	JoinedAt    time.Time     `json:"joined_at"`
	Guesses     []string      `json:"guesses,omitempty"`
	Results     []GuessResult `json:"results,omitempty"`
	LastGuessAt time.Time     `json:"last_guess_at,omitempty"`
}

// BestBulls returns the member's highest exact-match count so far
func (m *Member) BestBulls() int {
	best := 0
	for _, r := range m.Results {
		if r.Bulls > best {
			best = r.Bulls
		}
	}
	return best
}

// Winner records who won the current game, set exactly once per game
type Winner struct {
	ID             ConnectionID `json:"id"`
	Username       string       `json:"username"`
	Attempts       int          `json:"attempts"`
	ElapsedSeconds int          `json:"time"`
}

// ChatMessage is a single entry in a room's bounded chat log
type ChatMessage struct {
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Room is an isolated game session. Members are kept in join order; the
// first entry after a host departure becomes the new host.
type Room struct {
	ID          RoomID        `json:"id"`
	HostID      ConnectionID  `json:"host_id"`
	Members     []Member      `json:"members"`
	DigitLength int           `json:"digit_length"`
	Secret      string        `json:"secret,omitempty"`
	Phase       Phase         `json:"phase"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	Winner      *Winner       `json:"winner,omitempty"`
	Chat        []ChatMessage `json:"chat,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Clone returns a deep copy sharing no mutable state with the receiver
func (r *Room) Clone() *Room {
	cp := *r
	cp.Members = make([]Member, len(r.Members))
	for i := range r.Members {
		cp.Members[i] = r.Members[i]
		cp.Members[i].Guesses = append([]string(nil), r.Members[i].Guesses...)
		cp.Members[i].Results = append([]GuessResult(nil), r.Members[i].Results...)
	}
	if r.Winner != nil {
		winner := *r.Winner
		cp.Winner = &winner
	}
	cp.Chat = append([]ChatMessage(nil), r.Chat...)
	return &cp
}

// GetMember returns the member with the given connection id, or nil
func (r *Room) GetMember(id ConnectionID) *Member {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i]
		}
	}
	return nil
}

// HasMember reports whether the connection is a member of the room
func (r *Room) HasMember(id ConnectionID) bool {
	return r.GetMember(id) != nil
}

// HostMember returns the current host's member record, or nil
func (r *Room) HostMember() *Member {
	return r.GetMember(r.HostID)
}

// HasUsername reports whether a member already uses the name,
// compared case-insensitively
func (r *Room) HasUsername(username string) bool {
	for i := range r.Members {
		if strings.EqualFold(r.Members[i].Username, username) {
			return true
		}
	}
	return false
}

// PlayerSummary is the per-member view shared with clients
type PlayerSummary struct {
	ID         ConnectionID `json:"id"`
	Username   string       `json:"username"`
	IsHost     bool         `json:"isHost"`
	GuessCount int          `json:"guessCount"`
	BestBulls  int          `json:"bestBulls"`
}

// PlayerSummaries returns summaries for all members in join order
func (r *Room) PlayerSummaries() []PlayerSummary {
	players := make([]PlayerSummary, len(r.Members))
	for i := range r.Members {
		m := &r.Members[i]
		players[i] = PlayerSummary{
			ID:         m.ID,
			Username:   m.Username,
			IsHost:     m.ID == r.HostID,
			GuessCount: len(m.Results),
			BestBulls:  m.BestBulls(),
		}
	}
	return players
}

// Leaderboard returns member summaries ranked by best exact-match count
// descending, then guess count ascending. Ties keep join order, which
// sort.SliceStable guarantees.
func (r *Room) Leaderboard() []PlayerSummary {
	board := r.PlayerSummaries()
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].BestBulls != board[j].BestBulls {
			return board[i].BestBulls > board[j].BestBulls
		}
		return board[i].GuessCount < board[j].GuessCount
	})
	return board
}

// Snapshot is the full room view returned to clients on create/join/restart
type Snapshot struct {
	ID          RoomID          `json:"id"`
	HostID      ConnectionID    `json:"hostId"`
	Players     []PlayerSummary `json:"players"`
	DigitLength int             `json:"digitLength"`
	Phase       Phase           `json:"status"`
	StartedAt   int64           `json:"startTime,omitempty"`
	Winner      *Winner         `json:"winner,omitempty"`
}

// Snapshot builds the client-facing view of the room.
// The secret is never included.
func (r *Room) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          r.ID,
		HostID:      r.HostID,
		Players:     r.PlayerSummaries(),
		DigitLength: r.DigitLength,
		Phase:       r.Phase,
		Winner:      r.Winner,
	}
	if !r.StartedAt.IsZero() {
		snap.StartedAt = r.StartedAt.UnixMilli()
	}
	return snap
}

// Summary is the public-listing view of a waiting room
type Summary struct {
	ID          RoomID `json:"id"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	DigitLength int    `json:"digitLength"`
	HostName    string `json:"hostName"`
}

// Summary builds the public listing entry for the room
func (r *Room) Summary() Summary {
	hostName := "Unknown"
	if host := r.HostMember(); host != nil {
		hostName = host.Username
	}
	return Summary{
		ID:          r.ID,
		PlayerCount: len(r.Members),
		MaxPlayers:  MaxMembers,
		DigitLength: r.DigitLength,
		HostName:    hostName,
	}
}

// NormalizeRoomID canonicalizes client-supplied room ids.
// Ids are case-insensitive on input and stored uppercase.
func NormalizeRoomID(raw string) RoomID {
	return RoomID(strings.ToUpper(strings.TrimSpace(raw)))
}
