package auth

import (
	"testing"
	"time"

	"feedesk/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Hour, Issuer: "feedesk"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateAccessToken(cfg, StudentIdentity(7, "asha@example.com"))
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	id := claims.Identity()
	assert.Equal(t, uint(7), id.StudentID)
	assert.Equal(t, "asha@example.com", id.Email)
	assert.True(t, id.IsStudent())
	assert.NoError(t, id.RequireStudent())
	assert.Error(t, id.RequireAdmin())
}

func TestParseAccessToken_Rejects(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateAccessToken(cfg, AdminIdentity("admin@example.com"))
	require.NoError(t, err)

	other := *cfg
	other.AccessSecret = "different"
	_, err = ParseAccessToken(&other, token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	old, err := GenerateAccessToken(&expired, AdminIdentity("admin@example.com"))
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(cfg, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentity_EmptyIsNotStudent(t *testing.T) {
	var id Identity
	assert.False(t, id.IsStudent())
	assert.False(t, id.IsAdmin())
	assert.Error(t, id.RequireStudent())
}
