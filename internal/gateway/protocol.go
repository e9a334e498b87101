package gateway

import (
	"encoding/json"

	"github.com/coderipple/coderipple-go/internal/model"
)

// Message types accepted from clients
const (
	TypeCreateRoom     = "createRoom"
	TypeJoinRoom       = "joinRoom"
	TypeLeaveRoom      = "leaveRoom"
	TypeGetPublicRooms = "getPublicRooms"
	TypeSetDigitLength = "setDigitLength"
	TypeStartGame      = "startGame"
	TypeSubmitGuess    = "submitGuess"
	TypeRestartGame    = "restartGame"
	TypeChatMessage    = "chatMessage"
)

// Envelope is the wire framing for every message in both directions.
// A request carries an id that its reply echoes; broadcasts have none.
type Envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Request payloads

type createRoomRequest struct {
	Username string `json:"username"`
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type setDigitLengthRequest struct {
	RoomID      string `json:"roomId"`
	DigitLength int    `json:"digitLength"`
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

type submitGuessRequest struct {
	RoomID string `json:"roomId"`
	Guess  string `json:"guess"`
}

type chatRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// Reply payloads

type roomReply struct {
	Room model.Snapshot `json:"room"`
}

type roomListReply struct {
	Rooms []model.Summary `json:"rooms"`
}

type successReply struct {
	Success bool `json:"success"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorReply struct {
	Error wireError `json:"error"`
}
