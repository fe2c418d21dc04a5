package gatekeeper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/playgate/gatekeeper/identity"
	"github.com/playgate/gatekeeper/internal/audit"
	"github.com/playgate/gatekeeper/internal/rate"
	"github.com/playgate/gatekeeper/jwt"
	"github.com/playgate/gatekeeper/password"
	"github.com/playgate/gatekeeper/session"
)

const tracerName = "github.com/playgate/gatekeeper"

// Engine runs logins. It is safe for concurrent use; requests share no
// mutable state beyond the stores behind it.
type Engine struct {
	config Config
	now    func() time.Time
	logger zerolog.Logger

	accounts     AccountProvider
	verifier     *identity.Verifier
	jwtManager   *jwt.Manager
	passwordHash *password.Hasher
	dummyHash    string
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	tracer       trace.Tracer

	closed atomic.Bool
}

func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Environment returns the configured deployment environment.
func (e *Engine) Environment() Environment {
	return e.config.Environment
}

// SessionLifetime returns the token lifetime, which is also the stored
// session TTL.
func (e *Engine) SessionLifetime() time.Duration {
	return e.jwtManager.Lifetime()
}

// Ping checks the session store.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	if _, err := e.sessionStore.Ping(ctx); err != nil {
		return err
	}
	return nil
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes pending audit events. Login returns ErrEngineNotReady afterwards.
// The Redis client and account provider are owned by the caller.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}
