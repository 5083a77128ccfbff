package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"muse/cmd/internal/auth/token"
)

type contextKey struct{ name string }

var principalKey = contextKey{"principal"}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	Username string
}

// PrincipalFrom extracts the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// SoftAuth resolves the bearer token into a Principal when one is presented
// and valid, and passes the request through either way. It runs ahead of the
// rate-limit gate so authenticated traffic can be keyed per user; rejection
// is left to RequireAuth on protected routes.
func SoftAuth(codec *token.Codec, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			subject, err := codec.Verify(raw)
			if err != nil {
				// Invalid or expired: proceed anonymous, let RequireAuth
				// decide. Logged at debug to keep noise down.
				log.Debug("auth.bearer_rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, Principal{Username: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no authenticated principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "a valid bearer token is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GatePrincipal adapts the context principal for the rate-limit gate.
func GatePrincipal(r *http.Request) (string, bool) {
	p, ok := PrincipalFrom(r.Context())
	return p.Username, ok
}
