package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LoginRequest is the flow-local login input.
type LoginRequest struct {
	Email    string
	Password string
	Token    string
}

// LoginAccount is a flow-local account model.
type LoginAccount struct {
	UserID       string
	Email        string
	Username     string
	PasswordHash string
	Banned       bool
	LastLoginAt  time.Time
}

// LoginIdentity is the outcome of external identity verification.
type LoginIdentity struct {
	ExternalID string
	AgeGate    bool
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Account  LoginAccount
	Identity LoginIdentity
	Token    string
	Strategy Strategy
}

// Stage is a step of the login state machine.
type Stage uint8

const (
	StageStart Stage = iota
	StageStrategyResolved
	StageBanChecked
	StageIdentityVerified
	StageTokenIssued
	StagePersisted
	StageResponded
	StageFailed
)

var stageNames = [...]string{
	StageStart:            "start",
	StageStrategyResolved: "strategy_resolved",
	StageBanChecked:       "ban_checked",
	StageIdentityVerified: "identity_verified",
	StageTokenIssued:      "token_issued",
	StagePersisted:        "persisted",
	StageResponded:        "responded",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginBanned      int
	IdentityRejected int
	TokenFallback    int
	SessionIssued    int
	PasswordUpgraded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	LoginBanned      string
	IdentityRejected string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady      error
	InvalidCredentials  error
	TokenAuthFailed     error
	PermanentBan        error
	IdentityNotLinked   error
	LoginRateLimited    error
	SessionNotFound     error
	AccountNotFound     error
	SessionUnavailable  error
	AccountUnavailable  error
	IdentityUnavailable error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool
	SessionLifetime        time.Duration
	// DummyHash is verified when the account does not exist.
	DummyHash string

	Now func() time.Time

	CheckLoginRate     func(context.Context, string) error
	IncrementLoginRate func(context.Context, string) error
	ResetLoginRate     func(context.Context, string) error

	ParseToken     func(string) (string, error)
	GetStoredToken func(context.Context, string) (string, error)
	StoreToken     func(context.Context, string, string, time.Duration) error
	IssueToken     func(string, LoginIdentity) (string, error)

	GetAccount  func(context.Context, string) (LoginAccount, error)
	SaveAccount func(context.Context, LoginAccount) error

	VerifyPassword       func(string, string) (bool, error)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)

	VerifyIdentity func(context.Context, string) (LoginIdentity, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)
	Warn      func(string, ...any)
	Debug     func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (d *LoginDeps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if d.Warn == nil {
		d.Warn = func(string, ...any) {}
	}
	if d.Debug == nil {
		d.Debug = func(string, ...any) {}
	}
}

func (d *LoginDeps) ready() bool {
	return d.ParseToken != nil &&
		d.GetStoredToken != nil &&
		d.StoreToken != nil &&
		d.IssueToken != nil &&
		d.GetAccount != nil &&
		d.SaveAccount != nil &&
		d.VerifyPassword != nil &&
		d.VerifyIdentity != nil &&
		d.SessionLifetime > 0
}

// RunLogin authenticates req, applies the ban and identity gates, and issues
// a session token that replaces any session previously stored for the account.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	deps.defaults()
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	stage := StageStart
	fail := func(event, userID string, metric int, err error, reason string) (*LoginResult, error) {
		at := stage
		stage = StageFailed
		deps.MetricInc(metric)
		deps.EmitAudit(ctx, event, false, userID, err, func() map[string]string {
			return map[string]string{
				"email":  req.Email,
				"stage":  at.String(),
				"reason": reason,
			}
		})
		return nil, err
	}

	outcome, err := ResolveAccount(ctx, req, deps)
	if err != nil {
		switch {
		case errors.Is(err, deps.Errors.LoginRateLimited):
			return fail(deps.Events.LoginRateLimited, "", deps.Metrics.LoginRateLimited, err, "rate_limited")
		case errors.Is(err, deps.Errors.InvalidCredentials):
			return fail(deps.Events.LoginFailure, "", deps.Metrics.LoginFailure, err, "invalid_credentials")
		default:
			return fail(deps.Events.LoginFailure, "", deps.Metrics.LoginFailure, err, "account_lookup")
		}
	}
	stage = StageStrategyResolved
	acct := outcome.Account

	if acct.Banned {
		return fail(deps.Events.LoginBanned, acct.UserID, deps.Metrics.LoginBanned, deps.Errors.PermanentBan, "banned")
	}
	stage = StageBanChecked

	ident, err := deps.VerifyIdentity(ctx, acct.Email)
	if err != nil {
		if errors.Is(err, deps.Errors.IdentityNotLinked) {
			return fail(deps.Events.IdentityRejected, acct.UserID, deps.Metrics.IdentityRejected, deps.Errors.IdentityNotLinked, "not_linked")
		}
		return fail(deps.Events.LoginFailure, acct.UserID, deps.Metrics.LoginFailure,
			fmt.Errorf("%w: %w", deps.Errors.IdentityUnavailable, err), "identity_lookup")
	}
	stage = StageIdentityVerified

	token, err := deps.IssueToken(acct.Email, ident)
	if err != nil {
		return fail(deps.Events.LoginFailure, acct.UserID, deps.Metrics.LoginFailure, err, "token_issue")
	}
	stage = StageTokenIssued

	if err := deps.StoreToken(ctx, acct.Email, token, deps.SessionLifetime); err != nil {
		return fail(deps.Events.LoginFailure, acct.UserID, deps.Metrics.LoginFailure,
			fmt.Errorf("%w: %w", deps.Errors.SessionUnavailable, err), "session_store")
	}
	deps.MetricInc(deps.Metrics.SessionIssued)

	acct.LastLoginAt = deps.Now().UTC()
	if err := deps.SaveAccount(ctx, acct); err != nil {
		return fail(deps.Events.LoginFailure, acct.UserID, deps.Metrics.LoginFailure,
			fmt.Errorf("%w: %w", deps.Errors.AccountUnavailable, err), "account_save")
	}
	if outcome.Rehashed {
		deps.MetricInc(deps.Metrics.PasswordUpgraded)
	}

	// A concurrent login may have replaced the token between the write and
	// this read; the stored value is the one that is valid.
	current, err := deps.GetStoredToken(ctx, acct.Email)
	if err != nil {
		return fail(deps.Events.LoginFailure, acct.UserID, deps.Metrics.LoginFailure,
			fmt.Errorf("%w: %w", deps.Errors.SessionUnavailable, err), "session_reread")
	}
	stage = StagePersisted

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, acct.UserID, nil, func() map[string]string {
		return map[string]string{
			"email":    acct.Email,
			"strategy": outcome.Strategy.String(),
			"age_gate": fmt.Sprintf("%t", ident.AgeGate),
		}
	})
	stage = StageResponded

	return &LoginResult{
		Account:  acct,
		Identity: ident,
		Token:    current,
		Strategy: outcome.Strategy,
	}, nil
}
