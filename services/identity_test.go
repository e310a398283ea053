package services

import (
	"testing"

	"github.com/epicshot/messaging/services/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyResolvesUser(t *testing.T) {
	users := newFakeUserRepo()
	alice := users.addUser("alice")
	verifier := NewJWTIdentityVerifier("secret", users)

	token, err := jwt.GenerateToken(alice.ID, "secret")
	require.NoError(t, err)

	user, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	assert.Equal(t, "alice", user.Username)
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	verifier := NewJWTIdentityVerifier("secret", newFakeUserRepo())

	_, err := verifier.Verify("")
	requireAPIError(t, err, 401)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	users := newFakeUserRepo()
	alice := users.addUser("alice")
	verifier := NewJWTIdentityVerifier("secret", users)

	token, err := jwt.GenerateToken(alice.ID, "other-secret")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	requireAPIError(t, err, 401)
}

func TestVerifyRejectsUnknownUser(t *testing.T) {
	verifier := NewJWTIdentityVerifier("secret", newFakeUserRepo())

	token, err := jwt.GenerateToken(uuid.New(), "secret")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	requireAPIError(t, err, 401)
}
