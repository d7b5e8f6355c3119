package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verifica/pkg/domain-errors"
)

func TestValidateToken(t *testing.T) {
	svc := New("test-signing-key", "verifica-test")

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.GenerateAccessToken("op-ana", "Ana Souza", time.Hour)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "op-ana", claims.ReviewerID)
		assert.Equal(t, "Ana Souza", claims.Name)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.GenerateAccessToken("op-ana", "Ana Souza", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := New("another-key", "verifica-test")
		token, err := other.GenerateAccessToken("op-ana", "Ana Souza", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		// Same shared key, different system. A staging token must not
		// open a production session.
		other := New("test-signing-key", "verifica-staging")
		token, err := other.GenerateAccessToken("op-ana", "Ana Souza", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("missing reviewer identity", func(t *testing.T) {
		token, err := svc.GenerateAccessToken("", "Ana Souza", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reviewer identity")
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})
}
