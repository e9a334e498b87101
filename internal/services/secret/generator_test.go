package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderipple/coderipple-go/internal/dependencies/mocks"
	"github.com/coderipple/coderipple-go/internal/dependencies/random"
)

func TestGenerateProperties(t *testing.T) {
	gen := New(random.New())

	for length := 3; length <= 6; length++ {
		for i := 0; i < 200; i++ {
			s := gen.Generate(length)
			require.Len(t, s, length)
			require.NotEqual(t, byte('0'), s[0], "leading zero in %q", s)

			seen := map[byte]bool{}
			for j := 0; j < len(s); j++ {
				require.GreaterOrEqual(t, s[j], byte('0'))
				require.LessOrEqual(t, s[j], byte('9'))
				require.False(t, seen[s[j]], "duplicate digit in %q", s)
				seen[s[j]] = true
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	rnd := mocks.NewMockRandom()
	// First pick: index 4 of "123456789" -> '5'.
	// Then from "0123467889"-minus-picked ("012346789"): index 2 -> '2',
	// then from "01346789": index 5 -> '7', then from "0134689": index 1 -> '1'.
	rnd.QueueIntn(4, 2, 5, 1)

	gen := New(rnd)
	assert.Equal(t, "5271", gen.Generate(4))
}
