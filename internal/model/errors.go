package model

import "errors"

// Common errors used across the application
var (
	// Registry / membership errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrAlreadyInRoom  = errors.New("connection is already in a room")
	ErrNotInRoom      = errors.New("connection is not in a room")
	ErrNotAMember     = errors.New("connection is not a member of this room")
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("username already taken in this room")
	ErrGameInProgress = errors.New("game already in progress")

	// State machine errors
	ErrNotHost             = errors.New("connection is not the host")
	ErrWrongPhase          = errors.New("operation not allowed in current phase")
	ErrInvalidDigitLength  = errors.New("digit length must be between 3 and 6")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")
	ErrRateLimited         = errors.New("guessing too fast")

	// Guess validation errors, reported in check order
	ErrGuessEmpty          = errors.New("guess is required")
	ErrGuessWrongLength    = errors.New("guess has wrong length")
	ErrGuessNotDigits      = errors.New("guess must contain only digits")
	ErrGuessRepeatedDigits = errors.New("guess digits must be unique")
	ErrGuessAlreadyTried   = errors.New("guess was already tried")
)
