package gatekeeper

import (
	"context"
	"errors"
	"testing"
)

func TestValidateSessionModes(t *testing.T) {
	h := newLoginHarness(t, testConfig(EnvDevelopment), nil)
	h.addAccount(t, "alice@example.com", "correct-horse", false)
	ctx := context.Background()

	first, err := h.engine.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	s, err := h.engine.ValidateSession(ctx, first.Token, ModeStrict)
	if err != nil {
		t.Fatalf("strict validate: %v", err)
	}
	if s.Email != "alice@example.com" || !s.AgeGate {
		t.Fatalf("unexpected session %+v", s)
	}
	if !s.ExpiresAt.Equal(h.now.Add(h.engine.SessionLifetime())) {
		t.Fatalf("unexpected expiry %v", s.ExpiresAt)
	}

	if _, err := h.engine.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := h.engine.ValidateSession(ctx, first.Token, ModeStrict); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("superseded token must fail strict validation, got %v", err)
	}
	if _, err := h.engine.ValidateSession(ctx, first.Token, ModeJWTOnly); err != nil {
		t.Fatalf("superseded token still passes jwt-only validation: %v", err)
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	h := newLoginHarness(t, testConfig(EnvDevelopment), nil)

	for _, mode := range []ValidationMode{ModeJWTOnly, ModeStrict} {
		if _, err := h.engine.ValidateSession(context.Background(), "not-a-token", mode); !errors.Is(err, ErrSessionInvalid) {
			t.Fatalf("%v: expected ErrSessionInvalid, got %v", mode, err)
		}
	}
}

func TestValidateSessionStoreFailure(t *testing.T) {
	h := newLoginHarness(t, testConfig(EnvDevelopment), nil)
	h.addAccount(t, "alice@example.com", "correct-horse", false)
	ctx := context.Background()

	res, err := h.engine.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	h.redis.Close()

	if _, err := h.engine.ValidateSession(ctx, res.Token, ModeStrict); !errors.Is(err, ErrSessionUnavailable) {
		t.Fatalf("expected ErrSessionUnavailable, got %v", err)
	}
	if _, err := h.engine.ValidateSession(ctx, res.Token, ModeJWTOnly); err != nil {
		t.Fatalf("jwt-only validation must not touch redis: %v", err)
	}
}
