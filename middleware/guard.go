package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/playgate/gatekeeper"
)

// SessionValidator is implemented by *gatekeeper.Engine.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string, mode gatekeeper.ValidationMode) (*gatekeeper.Session, error)
}

type sessionContextKey struct{}

// SessionFromContext returns the session stored by a guard.
func SessionFromContext(ctx context.Context) (*gatekeeper.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*gatekeeper.Session)
	return s, ok
}

// Guard rejects requests without a valid Bearer session token.
func Guard(v SessionValidator, mode gatekeeper.ValidationMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			s, err := v.ValidateSession(r.Context(), token, mode)
			if err != nil {
				if errors.Is(err, gatekeeper.ErrSessionUnavailable) || errors.Is(err, gatekeeper.ErrEngineNotReady) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireJWTOnly(v SessionValidator) func(http.Handler) http.Handler {
	return Guard(v, gatekeeper.ModeJWTOnly)
}

func RequireStrict(v SessionValidator) func(http.Handler) http.Handler {
	return Guard(v, gatekeeper.ModeStrict)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
