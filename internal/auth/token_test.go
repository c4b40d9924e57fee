package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_ShapeAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		tok, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, tok, 64, "32 random bytes hex-encoded")
		assert.Regexp(t, "^[0-9a-f]{64}$", tok)

		_, dup := seen[tok]
		require.False(t, dup, "token collision in a 256-token sample")
		seen[tok] = struct{}{}
	}
}

func TestRedactToken(t *testing.T) {
	t.Parallel()

	tok, err := NewToken()
	require.NoError(t, err)

	red := RedactToken(tok)
	assert.NotEqual(t, tok, red)
	assert.NotContains(t, red, tok[8:])

	assert.Equal(t, "********", RedactToken("short"))
	assert.Equal(t, "********", RedactToken(""))
}
