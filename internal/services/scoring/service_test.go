package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderipple/coderipple-go/internal/model"
)

func TestScore(t *testing.T) {
	svc := New()

	tests := []struct {
		name   string
		secret string
		guess  string
		bulls  int
		cows   int
	}{
		{"one bull one cow", "5271", "1234", 1, 1},
		{"exact match", "5271", "5271", 4, 0},
		{"no matches", "5271", "4689", 0, 0},
		{"all cows", "5271", "1527", 0, 4},
		{"mixed", "5271", "5217", 2, 2},
		{"three digit secret", "123", "321", 1, 2},
		{"six digit exact", "123456", "123456", 6, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.Score(tt.secret, tt.guess)
			assert.Equal(t, tt.bulls, result.Bulls, "bulls")
			assert.Equal(t, tt.cows, result.Cows, "cows")
			assert.Equal(t, tt.guess, result.Guess)
		})
	}
}

func TestScoreBullsPlusCowsBounded(t *testing.T) {
	svc := New()

	secrets := []string{"123", "5271", "90817", "123456"}
	guesses := []string{"321", "1234", "81790", "654321"}

	for i := range secrets {
		result := svc.Score(secrets[i], guesses[i])
		n := len(secrets[i])
		assert.LessOrEqual(t, result.Bulls+result.Cows, n)
		if guesses[i] == secrets[i] {
			assert.Equal(t, n, result.Bulls)
		} else {
			assert.Less(t, result.Bulls, n)
		}
	}
}

func TestIsWinning(t *testing.T) {
	svc := New()

	assert.True(t, svc.IsWinning(model.GuessResult{Bulls: 4}, 4))
	assert.False(t, svc.IsWinning(model.GuessResult{Bulls: 3, Cows: 1}, 4))
}

func TestValidateGuessAccepts(t *testing.T) {
	err := ValidateGuess("1234", 4, []string{"4321", "5678"})
	require.NoError(t, err)
}

func TestValidateGuessFailures(t *testing.T) {
	tests := []struct {
		name     string
		guess    string
		length   int
		previous []string
		want     error
	}{
		{"empty", "", 4, nil, model.ErrGuessEmpty},
		{"too short", "123", 4, nil, model.ErrGuessWrongLength},
		{"too long", "12345", 4, nil, model.ErrGuessWrongLength},
		{"non digit", "12a4", 4, nil, model.ErrGuessNotDigits},
		{"repeated digits", "1223", 4, nil, model.ErrGuessRepeatedDigits},
		{"already guessed", "1234", 4, []string{"1234"}, model.ErrGuessAlreadyTried},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGuess(tt.guess, tt.length, tt.previous)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateGuessCheckOrder(t *testing.T) {
	// A guess that is the wrong length, non-numeric, and previously guessed
	// must report the length problem first.
	err := ValidateGuess("ab", 4, []string{"ab"})
	assert.ErrorIs(t, err, model.ErrGuessWrongLength)

	// Non-digit beats repeated characters
	err = ValidateGuess("aabb", 4, nil)
	assert.ErrorIs(t, err, model.ErrGuessNotDigits)

	// Repeated digits beat already-guessed
	err = ValidateGuess("1122", 4, []string{"1122"})
	assert.ErrorIs(t, err, model.ErrGuessRepeatedDigits)
}
