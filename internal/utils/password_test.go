package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-Passw0rd", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "s3cret-Passw0rd"))
	assert.False(t, VerifyPassword(hash, "s3cret-Passw0rd "))
	assert.False(t, VerifyPassword(hash, "other"))
}

func TestHashPasswordSalted(t *testing.T) {
	// Two hashes of the same input must differ: bcrypt embeds a random salt.
	h1, err := HashPassword("same input", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("same input", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword(h1, "same input"))
	assert.True(t, VerifyPassword(h2, "same input"))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	// A malformed stored hash must read as a failed verification, not panic
	// or error.
	assert.False(t, VerifyPassword("", "whatever"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "whatever"))
}
