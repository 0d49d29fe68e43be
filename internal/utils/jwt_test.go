package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	uid := uuid.New()

	at, err := NewAccessToken(testSecret, uid, true, 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), at.Exp, 5*time.Second)

	p, err := VerifyAccessToken(testSecret, at.Token)
	require.NoError(t, err)
	assert.Equal(t, uid, p.UserID)
	assert.True(t, p.IsAdmin)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken(testSecret, uuid.New(), false, 15)
	require.NoError(t, err)

	_, err = VerifyAccessToken("a different secret", at.Token)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": uuid.New().String(),
		"adm": false,
		"exp": time.Now().UTC().Add(-time.Minute).Unix(),
		"iat": time.Now().UTC().Add(-time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestVerifyAccessTokenMalformed(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := VerifyAccessToken(testSecret, raw)
		assert.ErrorIs(t, err, ErrInvalidAccessToken, "raw=%q", raw)
	}
}

func TestVerifyAccessTokenBadSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "not-a-uuid",
		"adm": false,
		"exp": time.Now().UTC().Add(time.Minute).Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestNewRefreshToken(t *testing.T) {
	r1, err := NewRefreshToken(30)
	require.NoError(t, err)
	r2, err := NewRefreshToken(30)
	require.NoError(t, err)

	assert.Len(t, r1.Raw, 96) // 48 random bytes, hex encoded
	assert.NotEqual(t, r1.Raw, r2.Raw)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), r1.Exp, 5*time.Second)
}

func TestHashRefreshRawStable(t *testing.T) {
	r, err := NewRefreshToken(1)
	require.NoError(t, err)

	h1 := HashRefreshRaw(r.Raw)
	h2 := HashRefreshRaw(r.Raw)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64) // sha256 hex
	assert.NotEqual(t, h1, HashRefreshRaw(r.Raw+"x"))
}
