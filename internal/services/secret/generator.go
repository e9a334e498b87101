package secret

import (
	"github.com/coderipple/coderipple-go/internal/dependencies/random"
)

// Generator produces secret digit strings for new games
type Generator struct {
	random random.Random
}

// New creates a new Generator
func New(rnd random.Random) *Generator {
	return &Generator{random: rnd}
}

// Generate returns a digit string of the given length with all-unique
// digits. The first digit is never '0'.
func (g *Generator) Generate(digitLength int) string {
	secret := make([]byte, 0, digitLength)

	// First digit from 1-9
	available := []byte{'1', '2', '3', '4', '5', '6', '7', '8', '9'}
	idx := g.random.Intn(len(available))
	secret = append(secret, available[idx])
	available = append(available[:idx], available[idx+1:]...)

	// Remaining digits from 0-9 excluding those already chosen
	remaining := append([]byte{'0'}, available...)
	for len(secret) < digitLength {
		idx := g.random.Intn(len(remaining))
		secret = append(secret, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	return string(secret)
}
