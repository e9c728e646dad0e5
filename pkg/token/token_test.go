package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	manager := NewManager("secret", time.Hour)
	userID := uuid.New()

	signed, expiresAt, err := manager.Issue(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	subject, err := manager.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager := NewManager("secret", time.Hour)

	_, err := manager.Verify("not-a-jwt")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	signed, _, err := issuer.Issue(uuid.New())
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := &Manager{secret: []byte("secret"), tokenTTL: -time.Minute}

	signed, _, err := manager.Issue(uuid.New())
	require.NoError(t, err)

	_, err = manager.Verify(signed)
	assert.Error(t, err)
}

func TestNewManagerDefaultsTTL(t *testing.T) {
	manager := NewManager("secret", 0)
	assert.Equal(t, time.Hour, manager.TTL())
}
