package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndCheckPassword(t *testing.T) {
	user := User{Email: "patient@example.com"}

	require.NoError(t, user.SetPassword("correct horse battery"))
	assert.NotEqual(t, "correct horse battery", user.Password, "password must be stored hashed")

	assert.True(t, user.CheckPassword("correct horse battery"))
	assert.False(t, user.CheckPassword("wrong password"))
	assert.False(t, user.CheckPassword(""))
}

func TestSanitizeOmitsPassword(t *testing.T) {
	user := User{
		Email:    "doc@example.com",
		FullName: "Dr. Example",
		Role:     RoleDoctor,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("secret-password"))

	sanitized := user.Sanitize()
	assert.Equal(t, user.Email, sanitized.Email)
	assert.Equal(t, user.FullName, sanitized.FullName)
	assert.Equal(t, RoleDoctor, sanitized.Role)
}
