package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
}

func TestGenerateAndValidateTokens(t *testing.T) {
	cfg := testConfig()
	user := &models.User{
		BaseModel: models.BaseModel{ID: "user-123"},
		Email:     "patient@example.com",
		Role:      models.RolePatient,
	}

	accessToken, refreshToken, err := GenerateTokens(user, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	claims, err := ValidateToken(accessToken, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, models.RolePatient, claims.Role)
	assert.Equal(t, "user-123", claims.Subject)

	refreshClaims, err := ValidateToken(refreshToken, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", refreshClaims.UserID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	cfg := testConfig()
	user := &models.User{
		BaseModel: models.BaseModel{ID: "user-123"},
		Role:      models.RoleDoctor,
	}

	accessToken, _, err := GenerateTokens(user, cfg)
	require.NoError(t, err)

	_, err = ValidateToken(accessToken, "some-other-secret")
	assert.Error(t, err)

	// An access token must not validate against the refresh secret.
	_, err = ValidateToken(accessToken, cfg.JWTRefreshSecret)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", "test-secret")
	assert.Error(t, err)
}
