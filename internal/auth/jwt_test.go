package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muthuthevar/collabspace/internal/auth"
)

func TestJWT_IssueAndValidateRoundTrip(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key-very-long-and-secure"
	userID := uuid.New()
	email := "alice@example.com"

	t.Run("access token round-trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(secret, userID, email, 5*time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auth.ValidateToken(secret, token)
		require.NoError(t, err)
		require.NotNil(t, claims)

		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, email, claims.Email)
		assert.Equal(t, "access", claims.TokenType)
		assert.Equal(t, "collabspace", claims.Issuer)
	})

	t.Run("refresh token round-trip", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueRefreshToken(secret, userID, email, 24*time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auth.ValidateToken(secret, token)
		require.NoError(t, err)
		require.NotNil(t, claims)

		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, email, claims.Email)
		assert.Equal(t, "refresh", claims.TokenType)
	})
}

func TestJWT_ExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	secret := "test-secret-key"
	userID := uuid.New()

	// Issue a token that has already expired (negative TTL).
	token, err := auth.IssueAccessToken(secret, userID, "a@b.c", -1*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(secret, token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_InvalidSecretRejected(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	token, err := auth.IssueAccessToken("correct-secret", userID, "a@b.c", 5*time.Minute)
	require.NoError(t, err)

	// Validate with a different secret.
	claims, err := auth.ValidateToken("wrong-secret", token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWT_MalformedTokenRejected(t *testing.T) {
	t.Parallel()

	claims, err := auth.ValidateToken("secret", "not.a.valid.jwt.token")
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyAccessToken(t *testing.T) {
	t.Parallel()

	secret := "verify-access-token-secret"
	userID := uuid.New()

	t.Run("accepts access token", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueAccessToken(secret, userID, "a@b.c", 5*time.Minute)
		require.NoError(t, err)

		claims, err := auth.VerifyAccessToken(secret, token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
	})

	t.Run("rejects refresh token", func(t *testing.T) {
		t.Parallel()

		token, err := auth.IssueRefreshToken(secret, userID, "a@b.c", 5*time.Minute)
		require.NoError(t, err)

		claims, err := auth.VerifyAccessToken(secret, token)
		require.Error(t, err)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		claims, err := auth.VerifyAccessToken(secret, "garbage")
		require.Error(t, err)
		assert.Nil(t, claims)
	})
}
