package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("has expected shape", func(t *testing.T) {
		token, keyHash, err := GenerateToken()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(token, TokenPrefix))
		assert.Equal(t, HashToken(token), keyHash)
		assert.Len(t, keyHash, 64) // sha256 hex
		assert.NoError(t, ValidateTokenFormat(token))
	})

	t.Run("tokens are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			token, _, err := GenerateToken()
			require.NoError(t, err)
			assert.False(t, seen[token], "duplicate token generated")
			seen[token] = true
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, HashToken("bks_abc"), HashToken("bks_abc"))
	})

	t.Run("distinct inputs distinct digests", func(t *testing.T) {
		assert.NotEqual(t, HashToken("bks_abc"), HashToken("bks_abd"))
	})
}

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid token", "bks_dGVzdC10b2tlbi1ieXRlcw", false},
		{"missing prefix", "dGVzdC10b2tlbi1ieXRlcw", true},
		{"wrong prefix", "sk_dGVzdC10b2tlbi1ieXRlcw", true},
		{"prefix only", "bks_", true},
		{"invalid base64url", "bks_not!valid!base64", true},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenFormat(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hash, err := HashPassword("correct horse battery staple")
		require.NoError(t, err)
		assert.NotEqual(t, "correct horse battery staple", hash)
		assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		hash, err := HashPassword("secret1")
		require.NoError(t, err)
		assert.False(t, VerifyPassword(hash, "secret2"))
	})

	t.Run("garbage hash rejected", func(t *testing.T) {
		assert.False(t, VerifyPassword("not-a-bcrypt-hash", "secret1"))
	})
}
