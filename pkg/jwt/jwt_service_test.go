package jwt

import (
	"RecipeShare/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserTokenRoundTrip(t *testing.T) {
	service := NewJWTService()

	token := service.GenerateTokenUser("42", "admin")
	require.NotEmpty(t, token)

	id, role, err := service.GetUserIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "admin", role)
}

func TestGetUserIDByTokenGarbage(t *testing.T) {
	service := NewJWTService()

	_, _, err := service.GetUserIDByToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestOneShotTokenRoundTrip(t *testing.T) {
	service := NewJWTService()

	token, err := service.GenerateTokenOneShot(map[string]any{
		"email":   "ada@example.com",
		"purpose": "verify_email",
	}, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateTokenOneShot(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims["email"])
	assert.Equal(t, "verify_email", claims["purpose"])
}

func TestOneShotTokenExpired(t *testing.T) {
	service := NewJWTService()

	token, err := service.GenerateTokenOneShot(map[string]any{
		"purpose": "reset_password",
	}, -time.Minute)
	require.NoError(t, err)

	_, err = service.ValidateTokenOneShot(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
