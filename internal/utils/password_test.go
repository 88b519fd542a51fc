package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.True(t, VerifyPassword(hash, "Sup3rSecret"))
	assert.False(t, VerifyPassword(hash, "sup3rsecret"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("Sup3rSecret", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("Sup3rSecret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordBadHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "whatever"))
}
