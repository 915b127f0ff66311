package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, sub string, expires time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestVerify_Valid(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := signToken(t, testSecret, "42", time.Now().Add(time.Hour))

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "alice", id.Username)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := signToken(t, []byte("other-secret"), "42", time.Now().Add(time.Hour))

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := signToken(t, testSecret, "42", time.Now().Add(-time.Hour))

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_NonNumericSubject(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := signToken(t, testSecret, "alice", time.Now().Add(time.Hour))

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	_, err := v.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContextGate(t *testing.T) {
	gate := ContextGate{}

	_, ok := gate.Identity(context.Background())
	assert.False(t, ok, "no identity without the auth middleware")

	ctx := WithIdentity(context.Background(), Identity{UserID: 7, Username: "bob"})
	id, ok := gate.Identity(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), id.UserID)
}
