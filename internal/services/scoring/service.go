package scoring

import (
	"fmt"
	"strings"

	"github.com/coderipple/coderipple-go/internal/model"
)

// Service scores guesses against a room's secret. It holds no state.
type Service struct{}

// New creates a new scoring Service
func New() *Service {
	return &Service{}
}

// Score compares a guess against the secret, position by position.
// A bull is a digit in the right position; a cow is a guessed digit that
// appears in the secret at a different position.
func (s *Service) Score(secret, guess string) model.GuessResult {
	result := model.GuessResult{Guess: guess}
	for i := 0; i < len(secret) && i < len(guess); i++ {
		if guess[i] == secret[i] {
			result.Bulls++
		} else if strings.IndexByte(secret, guess[i]) >= 0 {
			result.Cows++
		}
	}
	return result
}

// IsWinning reports whether the result matched every digit exactly
func (s *Service) IsWinning(result model.GuessResult, digitLength int) bool {
	return result.Bulls == digitLength
}

// ValidateGuess checks a candidate guess. Checks run in a fixed order so the
// first failing reason is the one reported: presence, length, character
// class, digit uniqueness, repeat of a prior guess.
func ValidateGuess(guess string, digitLength int, previous []string) error {
	if guess == "" {
		return model.ErrGuessEmpty
	}
	if len(guess) != digitLength {
		return fmt.Errorf("%w: must be exactly %d digits", model.ErrGuessWrongLength, digitLength)
	}
	for i := 0; i < len(guess); i++ {
		if guess[i] < '0' || guess[i] > '9' {
			return model.ErrGuessNotDigits
		}
	}
	var seen [10]bool
	for i := 0; i < len(guess); i++ {
		d := guess[i] - '0'
		if seen[d] {
			return model.ErrGuessRepeatedDigits
		}
		seen[d] = true
	}
	for _, prev := range previous {
		if prev == guess {
			return model.ErrGuessAlreadyTried
		}
	}
	return nil
}
