package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktoken_UnknownModelWithoutFallback(t *testing.T) {
	c := NewTiktoken("")

	n, err := c.Count("hello there", "deepseek-chat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenizationUnavailable)
	assert.Zero(t, n)
}

func TestTiktoken_UnknownFallbackEncoding(t *testing.T) {
	c := NewTiktoken("no_such_encoding")

	_, err := c.Count("hello there", "deepseek-chat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenizationUnavailable)
	assert.Contains(t, err.Error(), "no_such_encoding")
}

func TestTiktoken_FailedLookupIsNotCached(t *testing.T) {
	c := NewTiktoken("")

	_, err := c.Count("a", "deepseek-chat")
	require.Error(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.encodings)
}
