package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playgate/gatekeeper/session"
)

// ValidationMode selects how much ValidateSession checks.
type ValidationMode int

const (
	// ModeJWTOnly checks the signature and expiry only. No Redis call.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict also requires the token to be the one currently stored for
	// the account, so tokens replaced by a later login are rejected.
	ModeStrict
)

func (m ValidationMode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "jwt_only"
}

// Session is the validated content of a session token.
type Session struct {
	Email      string
	ExternalID string
	AgeGate    bool
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// ValidateSession checks a token issued by Login. Rejected tokens return
// ErrSessionInvalid; session store failures are wrapped in
// ErrSessionUnavailable.
func (e *Engine) ValidateSession(ctx context.Context, token string, mode ValidationMode) (*Session, error) {
	if e == nil || e.closed.Load() {
		return nil, ErrEngineNotReady
	}

	ctx, span := e.tracer.Start(ctx, "gatekeeper.ValidateSession", trace.WithAttributes(
		attribute.String("gatekeeper.mode", mode.String()),
	))
	defer span.End()

	p, err := e.jwtManager.Parse(token)
	if err != nil {
		span.SetStatus(codes.Error, "token rejected")
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	if mode == ModeStrict {
		stored, err := e.sessionStore.Get(ctx, p.Email)
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			span.SetStatus(codes.Error, "no session")
			return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "session store")
			return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
		case stored != token:
			span.SetStatus(codes.Error, "superseded")
			return nil, fmt.Errorf("%w: superseded by a newer login", ErrSessionInvalid)
		}
	}

	span.SetStatus(codes.Ok, "")
	return &Session{
		Email:      p.Email,
		ExternalID: p.ExternalID,
		AgeGate:    p.AgeGate,
		IssuedAt:   p.IssuedAt,
		ExpiresAt:  p.ExpiresAt,
	}, nil
}
