package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hash verifies against the original", func(t *testing.T) {
		hash, err := HashPassword("correct horse battery")
		require.NoError(t, err)
		assert.True(t, CheckPasswordHash("correct horse battery", hash))
		assert.False(t, CheckPasswordHash("wrong password", hash))
	})

	t.Run("rejects passwords below the minimum length", func(t *testing.T) {
		_, err := HashPassword("short")
		assert.Error(t, err)
	})
}
