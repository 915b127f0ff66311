// Package session exposes the acting user's identity to the rest of the
// service. It never authenticates, refreshes, or persists anything itself:
// tokens are minted by the external auth service, this package only verifies
// and reads them.
package session

import "context"

// Identity is the authenticated user behind a request.
type Identity struct {
	UserID   int64
	Username string
}

// Gate supplies the current acting user's identity, or reports its absence.
type Gate interface {
	Identity(ctx context.Context) (Identity, bool)
}

type identityKey struct{}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the identity placed in ctx by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ContextGate is the production Gate: it reads the identity the auth
// middleware stored in the request context.
type ContextGate struct{}

func (ContextGate) Identity(ctx context.Context) (Identity, bool) {
	return FromContext(ctx)
}

type sessionIDKey struct{}

// WithSessionID returns a context carrying the anonymous session ID that
// keys the browser onto its cart.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext extracts the session ID placed in ctx by the session
// cookie middleware.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok
}
