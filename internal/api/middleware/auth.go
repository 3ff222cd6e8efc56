package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/teamroster/internal/api/apierr"
	"github.com/mcoot/teamroster/internal/services/auth"
)

// Authenticator verifies a bearer token
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// Auth rejects requests without a valid bearer token and places the
// caller's identity in the request context
func Auth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticator.Authenticate(extractToken(r))
			if err != nil {
				apierr.WriteError(w, logger, apierr.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// extractToken returns the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// MustGetIdentity returns the authenticated identity or panics
func MustGetIdentity(ctx context.Context) auth.Identity {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		panic("no identity in context - auth middleware not applied?")
	}
	return identity
}
