package gateway

import (
	"errors"

	"github.com/coderipple/coderipple-go/internal/model"
)

// Wire-level error codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidPhase        = "INVALID_PHASE"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeRoomFull            = "ROOM_FULL"
	CodeNameTaken           = "NAME_TAKEN"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeGameInProgress      = "GAME_IN_PROGRESS"
	CodeAlreadyInRoom       = "ALREADY_IN_ROOM"
	CodeInternalError       = "INTERNAL_ERROR"
)

// toWireError maps a service error to the code and message sent back to
// the requesting client. Unknown errors are not leaked.
func toWireError(err error) wireError {
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return wireError{CodeNotFound, "Room not found"}
	case errors.Is(err, model.ErrNotAMember), errors.Is(err, model.ErrNotInRoom):
		return wireError{CodeNotFound, "You are not a member of this room"}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return wireError{CodeAlreadyInRoom, "You are already in a room"}
	case errors.Is(err, model.ErrGameInProgress):
		return wireError{CodeGameInProgress, "Game already in progress"}
	case errors.Is(err, model.ErrRoomFull):
		return wireError{CodeRoomFull, "Room is full"}
	case errors.Is(err, model.ErrNameTaken):
		return wireError{CodeNameTaken, "Username already taken in this room"}
	case errors.Is(err, model.ErrNotHost):
		return wireError{CodeForbidden, "Only the host can perform this action"}
	case errors.Is(err, model.ErrWrongPhase):
		return wireError{CodeInvalidPhase, "Operation not allowed in the current game state"}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return wireError{CodeInsufficientPlayers, "Need at least 2 players to start"}
	case errors.Is(err, model.ErrRateLimited):
		return wireError{CodeRateLimited, "You are guessing too fast"}
	case errors.Is(err, model.ErrInvalidDigitLength),
		errors.Is(err, model.ErrGuessEmpty),
		errors.Is(err, model.ErrGuessWrongLength),
		errors.Is(err, model.ErrGuessNotDigits),
		errors.Is(err, model.ErrGuessRepeatedDigits),
		errors.Is(err, model.ErrGuessAlreadyTried):
		// Validation messages are safe to pass through verbatim
		return wireError{CodeInvalidArgument, err.Error()}
	default:
		return wireError{CodeInternalError, "Internal server error"}
	}
}
