package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStart(t *testing.T) {
	passage := "I take the bus, then the bus again."

	start, ok := resolveStart(passage, "bus", 25)
	assert.True(t, ok)
	assert.Equal(t, 25, start, "a matching hint is kept")

	start, ok = resolveStart(passage, "bus", 3)
	assert.True(t, ok)
	assert.Equal(t, 11, start, "a wrong hint falls back to the first occurrence")

	_, ok = resolveStart(passage, "train", 0)
	assert.False(t, ok)

	_, ok = resolveStart(passage, "", 0)
	assert.False(t, ok)
}

func TestResolveStart_CodePoints(t *testing.T) {
	passage := "Café près du métro"
	start, ok := resolveStart(passage, "métro", -1)
	assert.True(t, ok)
	assert.Equal(t, 13, start)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 0))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
}

func TestNotInContextError(t *testing.T) {
	err := &NotInContextError{Annotator: "m", Answer: "train"}
	assert.Equal(t, `qa: m: answer "train" not in context`, err.Error())
}
