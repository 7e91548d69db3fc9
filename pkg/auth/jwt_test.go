package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Generate("user-1", RolePatient)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	principal, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.ID)
	assert.Equal(t, RolePatient, principal.Role)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Generate("user-1", RolePatient)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	token, err := m.Generate("user-1", RolePatient)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestValidate_Garbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	_, err := m.Validate("not-a-token")
	assert.Error(t, err)
}

func TestPrincipalRoom(t *testing.T) {
	p := Principal{ID: "doc-1", Role: RoleDoctor}
	assert.Equal(t, "doc-1", p.Room())
}
