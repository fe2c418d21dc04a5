package gatekeeper

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playgate/gatekeeper/identity"
	"github.com/playgate/gatekeeper/internal/audit"
	"github.com/playgate/gatekeeper/internal/flows"
	"github.com/playgate/gatekeeper/jwt"
	"github.com/playgate/gatekeeper/session"
)

// Login authenticates req by session token or password and issues a new
// session token. The new token replaces whatever session was stored for the
// account, so at most one token per account is valid at a time.
//
// A presented token that fails for any reason is ignored and the password is
// checked instead. Errors are ErrInvalidRequest, ErrInvalidCredentials,
// ErrLoginRateLimited, ErrPermanentBan, ErrIdentityNotLinked, or a collaborator
// failure wrapped in ErrSessionUnavailable, ErrAccountUnavailable or
// ErrIdentityUnavailable.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.closed.Load() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "gatekeeper.Login", trace.WithAttributes(
		attribute.Bool("gatekeeper.token_presented", req.Token != ""),
		attribute.String("gatekeeper.environment", string(e.config.Environment)),
	))
	defer span.End()

	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		e.metrics.Inc(MetricLoginFailure)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	res, err := flows.RunLogin(ctx, flows.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
		Token:    req.Token,
	}, e.loginDeps(ctx))
	e.metrics.Observe(MetricLoginLatency, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug().Err(err).Str("email", req.Email).Msg("login rejected")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gatekeeper.strategy", res.Strategy.String()),
		attribute.String("gatekeeper.user_id", res.Account.UserID),
		attribute.Bool("gatekeeper.age_gate", res.Identity.AgeGate),
	)
	span.SetStatus(codes.Ok, "")

	return &LoginResult{
		Account:    accountFromFlow(res.Account),
		Token:      res.Token,
		ExternalID: res.Identity.ExternalID,
		AgeGate:    res.Identity.AgeGate,
		Strategy:   res.Strategy.String(),
	}, nil
}

func (e *Engine) loginDeps(ctx context.Context) flows.LoginDeps {
	ip := ClientIP(ctx)

	deps := flows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		SessionLifetime:        e.jwtManager.Lifetime(),
		DummyHash:              e.dummyHash,
		Now:                    e.now,

		ParseToken: func(token string) (string, error) {
			p, err := e.jwtManager.Parse(token)
			if err != nil {
				return "", err
			}
			return p.Email, nil
		},
		GetStoredToken: e.sessionStore.Get,
		StoreToken:     e.sessionStore.Set,
		IssueToken: func(email string, ident flows.LoginIdentity) (string, error) {
			return e.jwtManager.Sign(jwt.Payload{
				Email:      email,
				ExternalID: ident.ExternalID,
				AgeGate:    ident.AgeGate,
			})
		},

		GetAccount: func(ctx context.Context, email string) (flows.LoginAccount, error) {
			a, err := e.accounts.GetAccountByEmail(ctx, email)
			if err != nil {
				return flows.LoginAccount{}, err
			}
			return accountToFlow(a), nil
		},
		SaveAccount: func(ctx context.Context, a flows.LoginAccount) error {
			return e.accounts.SaveAccount(ctx, accountFromFlow(a))
		},

		VerifyPassword:       e.passwordHash.Verify,
		PasswordNeedsUpgrade: e.passwordHash.NeedsUpgrade,
		HashPassword:         e.passwordHash.Hash,

		VerifyIdentity: func(ctx context.Context, email string) (flows.LoginIdentity, error) {
			r, err := e.verifier.Verify(ctx, email)
			if err != nil {
				if errors.Is(err, identity.ErrNotLinked) {
					return flows.LoginIdentity{}, ErrIdentityNotLinked
				}
				return flows.LoginIdentity{}, err
			}
			return flows.LoginIdentity{ExternalID: r.ExternalID, AgeGate: r.AgeGate}, nil
		},

		MetricInc: func(id int) {
			e.metrics.Inc(MetricID(id))
		},
		EmitAudit: func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string) {
			if e.audit == nil {
				return
			}
			ev := audit.Event{
				EventType: event,
				UserID:    userID,
				IP:        ip,
				Success:   success,
			}
			if err != nil {
				ev.Error = err.Error()
			}
			if meta != nil {
				ev.Metadata = meta()
			}
			e.audit.Emit(ctx, ev)
		},
		Warn: func(msg string, kv ...any) {
			e.logger.Warn().Fields(kv).Msg(msg)
		},
		Debug: func(msg string, kv ...any) {
			e.logger.Debug().Fields(kv).Msg(msg)
		},

		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			LoginBanned:      int(MetricLoginBanned),
			IdentityRejected: int(MetricIdentityRejected),
			TokenFallback:    int(MetricTokenFallback),
			SessionIssued:    int(MetricSessionIssued),
			PasswordUpgraded: int(MetricPasswordUpgraded),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     AuditLoginSuccess,
			LoginFailure:     AuditLoginFailure,
			LoginRateLimited: AuditLoginRateLimited,
			LoginBanned:      AuditLoginBanned,
			IdentityRejected: AuditIdentityRejected,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:      ErrEngineNotReady,
			InvalidCredentials:  ErrInvalidCredentials,
			TokenAuthFailed:     ErrTokenAuthFailed,
			PermanentBan:        ErrPermanentBan,
			IdentityNotLinked:   ErrIdentityNotLinked,
			LoginRateLimited:    ErrLoginRateLimited,
			SessionNotFound:     session.ErrSessionNotFound,
			AccountNotFound:     ErrAccountNotFound,
			SessionUnavailable:  ErrSessionUnavailable,
			AccountUnavailable:  ErrAccountUnavailable,
			IdentityUnavailable: ErrIdentityUnavailable,
		},
	}

	if e.rateLimiter.Enabled() {
		deps.CheckLoginRate = func(ctx context.Context, email string) error {
			return e.rateLimiter.CheckLogin(ctx, email, ip)
		}
		deps.IncrementLoginRate = func(ctx context.Context, email string) error {
			return e.rateLimiter.IncrementLogin(ctx, email, ip)
		}
		deps.ResetLoginRate = func(ctx context.Context, email string) error {
			return e.rateLimiter.ResetLogin(ctx, email, ip)
		}
	}

	return deps
}

func accountToFlow(a Account) flows.LoginAccount {
	return flows.LoginAccount{
		UserID:       a.UserID,
		Email:        a.Email,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Banned:       a.Banned,
		LastLoginAt:  a.LastLoginAt,
	}
}

func accountFromFlow(a flows.LoginAccount) Account {
	return Account{
		UserID:       a.UserID,
		Email:        a.Email,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Banned:       a.Banned,
		LastLoginAt:  a.LastLoginAt,
	}
}
