package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPairRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	access, refresh, expiresAt, err := svc.GenerateTokenPair("user-1", "dev@acme.test")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.Greater(t, expiresAt, int64(0))

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "dev@acme.test", claims.Email)
	assert.Equal(t, "access", claims.Type)

	claims, err = svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.Type)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	access, _, _, err := NewJWTService("secret-a").GenerateTokenPair("user-1", "dev@acme.test")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b").ValidateToken(access)
	assert.Error(t, err)
}

func TestRefreshAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")
	access, refresh, _, err := svc.GenerateTokenPair("user-1", "dev@acme.test")
	require.NoError(t, err)

	newAccess, _, err := svc.RefreshAccessToken(refresh)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "user-1", claims.UserID)

	// An access token cannot be used to refresh.
	_, _, err = svc.RefreshAccessToken(access)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.Contains(t, hash, "$")

	assert.True(t, VerifyPassword("hunter22", hash))
	assert.False(t, VerifyPassword("hunter23", hash))
	assert.False(t, VerifyPassword("hunter22", "garbage"))

	// A fresh hash of the same password uses a fresh salt.
	hash2, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
	assert.True(t, VerifyPassword("hunter22", hash2))
}
