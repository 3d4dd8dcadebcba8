package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/assetfolio/backend/src/config"
)

func init() {
	config.Cfg = &config.AppConfig{AccessTokenExpiry: time.Minute}
}

func TestHashAndComparePassword(t *testing.T) {
	auth := NewAuthService("test-secret")

	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, auth.CompareHashAndPassword(hash, "correct horse battery staple"))
	assert.Error(t, auth.CompareHashAndPassword(hash, "wrong password"))
}

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret")

	token, err := auth.GenerateToken("42")
	require.NoError(t, err)

	sub, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	auth := NewAuthService("test-secret")
	other := NewAuthService("another-secret")

	token, err := auth.GenerateToken("42")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	auth := NewAuthService("test-secret")

	_, err := auth.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestGenerateRefreshToken_Unique(t *testing.T) {
	auth := NewAuthService("test-secret")

	first, err := auth.GenerateRefreshToken()
	require.NoError(t, err)
	second, err := auth.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
