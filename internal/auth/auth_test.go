package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", Issuer: "stockcast", TokenTTLHours: 1})
	require.NoError(t, err)
	return m
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, expiry, err := m.Issue(&domain.User{ID: 42, Username: "anna"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "anna", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenRejections(t *testing.T) {
	m := newTestManager(t)
	token, _, err := m.Issue(&domain.User{ID: 1, Username: "anna"})
	require.NoError(t, err)

	other, err := NewTokenManager(config.AuthConfig{JWTSecret: "other", Issuer: "stockcast"})
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	wrongIssuer, err := NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)
	_, err = wrongIssuer.Parse(token)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorContains(t, err, "expired")

	_, err = m.Parse("")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager(t)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Parse(unsigned)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(config.AuthConfig{Issuer: "x"})
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.NoError(t, CheckPassword(hash, "s3cret!"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), domain.ErrUnauthorized)
}
