package gameid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	t.Parallel()

	id := Generate()
	require.Len(t, id, 26)
	for i, c := range id {
		assert.True(t, strings.ContainsRune(alphabet, c), "character %c at %d outside the alphabet", c, i)
	}
	assert.LessOrEqual(t, id[0], byte('7'), "the two pad bits cap the first character")
}

func TestGenerateUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := Generate()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateSortsByCreationTime(t *testing.T) {
	t.Parallel()

	earlier := Generate()
	time.Sleep(2 * time.Millisecond)
	later := Generate()
	assert.Less(t, earlier, later, "the timestamp prefix orders ids")
}
