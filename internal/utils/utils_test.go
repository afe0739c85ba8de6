package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(secret, 42, "ADMIN", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)

	claims, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "ADMIN", claims.Role)
	require.NotNil(t, claims.IssuedAt)
}

func TestParseAccessTokenRejects(t *testing.T) {
	expired, err := NewAccessToken(secret, 1, "MEMBER", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, expired.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other, err := NewAccessToken("another-secret", 1, "MEMBER", time.Hour)
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, other.Token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = ParseAccessToken(secret, "not-a-jwt")
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, raw)
	assert.Error(t, err)
}

func TestVerificationTokenHash(t *testing.T) {
	a, err := NewVerificationToken(24 * time.Hour)
	require.NoError(t, err)
	b, err := NewVerificationToken(24 * time.Hour)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 64)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, HashToken(a.Raw), 64)
	assert.Equal(t, HashToken(a.Raw), HashToken(a.Raw))
	assert.NotEqual(t, a.Raw, HashToken(a.Raw))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))

	_, err = HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	// 40 runes, 80 bytes
	_, err = HashPassword(strings.Repeat("é", 40), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err = HashPassword(strings.Repeat("é", 36), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, strings.Repeat("é", 36)))
}
