package api

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/flashsale-storefront/internal/domain/session"
)

// sessionCookie names the cookie that keys a browser onto its cart.
const sessionCookie = "sf_session"

type sessionKey struct{}

// withSession ensures every request carries a session ID, minting a new
// cookie for first-time visitors. The ID keys the cart store.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.cfg.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := session.WithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAuth parses an optional Authorization bearer token into the request
// identity. A missing header leaves the request anonymous; a present but
// invalid token is rejected outright.
func (h *Handler) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		identity, err := h.verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := session.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth guards handlers that only make sense for a signed-in user.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

// me returns the identity asserted by the bearer token.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("userId", func(e *jx.Encoder) { e.Int64(identity.UserID) })
			e.Field("username", func(e *jx.Encoder) { e.Str(identity.Username) })
		})
	})
}

// cartFor resolves the request's cart from the session cookie.
func (h *Handler) cartFor(r *http.Request) (string, bool) {
	return session.SessionIDFromContext(r.Context())
}
