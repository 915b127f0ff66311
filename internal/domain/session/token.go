package session

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry, or
// claim validation.
var ErrInvalidToken = errors.New("invalid session token")

// TokenVerifier validates HS256 bearer tokens issued by the auth service and
// extracts the identity claims.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a TokenVerifier with the shared HMAC secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verify parses and validates token, returning the identity it asserts.
// The subject claim carries the numeric user ID.
func (v *TokenVerifier) Verify(token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: userID, Username: c.Username}, nil
}
