package security_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-accounts/app/security"
)

func TestGenerateToken(t *testing.T) {
	token, err := security.GenerateToken()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err, "token must be URL-safe base64")
	assert.Len(t, raw, security.TokenBytes)

	seen := map[string]struct{}{token: {}}
	for i := 0; i < 100; i++ {
		next, err := security.GenerateToken()
		require.NoError(t, err)
		_, dup := seen[next]
		require.False(t, dup, "duplicate token generated")
		seen[next] = struct{}{}
	}
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, security.HashToken("abc"), security.HashToken("abc"))
	assert.NotEqual(t, security.HashToken("abc"), security.HashToken("abd"))
	assert.Len(t, security.HashToken("abc"), 64)
}
