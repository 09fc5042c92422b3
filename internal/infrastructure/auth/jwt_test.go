package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/prestashop-connector/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.AuthConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "prestashop-connector",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateToken("ops", ScopeAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "prestashop-connector", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.Allows(ScopeRead))
	assert.True(t, claims.Allows(ScopeAdmin))
}

func TestJWTService_GenerateToken_MissingSubject(t *testing.T) {
	_, err := newTestJWTService().GenerateToken("", ScopeRead, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestClaims_Allows(t *testing.T) {
	read := &Claims{Scope: ScopeRead}
	assert.True(t, read.Allows(ScopeRead))
	assert.False(t, read.Allows(ScopeAdmin))
}

func TestJWTService_ValidateToken_Errors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("expired", func(t *testing.T) {
		past := newTestJWTService()
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.GenerateToken("ops", ScopeRead, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		future := newTestJWTService()
		future.now = func() time.Time { return time.Now().Add(time.Hour) }
		token, err := future.GenerateToken("ops", ScopeRead, 2*time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.AuthConfig{Secret: "another-secret-of-at-least-32-chars", Issuer: "prestashop-connector"})
		token, err := other.GenerateToken("ops", ScopeRead, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.AuthConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "someone-else"})
		token, err := other.GenerateToken("ops", ScopeRead, time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
