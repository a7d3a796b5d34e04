package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityResolver maps a bearer token to an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (models.Identity, error)
}

// BearerToken returns the token from "Authorization: Bearer <token>", falling back to the
// token query parameter, which browsers need for WebSocket upgrades.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// RequireIdentity rejects requests without a resolvable identity.
// No or unknown session: 404 "User not found". Session for a missing or disabled account: 401.
func RequireIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Context(), BearerToken(r))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
			case errors.Is(err, services.ErrNoIdentity):
				writeError(w, http.StatusNotFound, "User not found")
			case errors.Is(err, services.ErrAuth):
				writeError(w, http.StatusUnauthorized, "Unauthorized")
			default:
				log.Printf("[RequireIdentity] Failed to resolve identity: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		})
	}
}

// WithIdentity stores identity on ctx.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok && identity.ID != ""
}
