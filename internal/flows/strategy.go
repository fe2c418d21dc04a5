package flows

import (
	"context"
	"errors"
	"fmt"
)

// Strategy names the path that produced an authenticated account.
type Strategy uint8

const (
	// StrategyNone means no account was authenticated.
	StrategyNone Strategy = iota
	// StrategyToken means the presented session token was current and valid.
	StrategyToken
	// StrategyPassword means email and password were verified.
	StrategyPassword
)

func (s Strategy) String() string {
	switch s {
	case StrategyToken:
		return "token"
	case StrategyPassword:
		return "password"
	default:
		return "none"
	}
}

// StrategyOutcome is the tagged result of [ResolveAccount].
//
// TokenErr is set when a token was presented and rejected; the outcome then
// comes from the password path (or the whole resolution failed).
type StrategyOutcome struct {
	Account  LoginAccount
	Strategy Strategy
	TokenErr error
	// Rehashed is set when the password path produced a stronger hash that
	// must be persisted with the account.
	Rehashed bool
}

// ResolveAccount tries token authentication when req.Token is set and falls
// back to password authentication on any token failure.
func ResolveAccount(ctx context.Context, req LoginRequest, deps LoginDeps) (StrategyOutcome, error) {
	var out StrategyOutcome

	if req.Token != "" {
		acct, err := authenticateToken(ctx, req.Token, deps)
		if err == nil {
			out.Account = acct
			out.Strategy = StrategyToken
			return out, nil
		}
		out.TokenErr = err
		deps.MetricInc(deps.Metrics.TokenFallback)
		deps.Debug("token authentication rejected, falling back to password", "email", req.Email, "reason", err.Error())
	}

	acct, rehashed, err := authenticatePassword(ctx, req.Email, req.Password, deps)
	if err != nil {
		return out, err
	}
	out.Account = acct
	out.Strategy = StrategyPassword
	out.Rehashed = rehashed
	return out, nil
}

// authenticateToken returns an error wrapping Errors.TokenAuthFailed for every
// rejection. Collaborator failures are rejections too; the caller decides.
func authenticateToken(ctx context.Context, token string, deps LoginDeps) (LoginAccount, error) {
	email, err := deps.ParseToken(token)
	if err != nil {
		return LoginAccount{}, fmt.Errorf("%w: %w", deps.Errors.TokenAuthFailed, err)
	}

	stored, err := deps.GetStoredToken(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.SessionNotFound) {
			deps.Warn("session lookup failed during token authentication", "email", email, "error", err.Error())
		}
		return LoginAccount{}, fmt.Errorf("%w: %w", deps.Errors.TokenAuthFailed, err)
	}
	if stored != token {
		return LoginAccount{}, fmt.Errorf("%w: token superseded", deps.Errors.TokenAuthFailed)
	}

	acct, err := deps.GetAccount(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			deps.Warn("account lookup failed during token authentication", "email", email, "error", err.Error())
		}
		return LoginAccount{}, fmt.Errorf("%w: %w", deps.Errors.TokenAuthFailed, err)
	}

	return acct, nil
}

func authenticatePassword(ctx context.Context, email, password string, deps LoginDeps) (LoginAccount, bool, error) {
	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email); err != nil {
			return LoginAccount{}, false, deps.Errors.LoginRateLimited
		}
	}

	if password == "" {
		return LoginAccount{}, false, failedAttempt(ctx, email, deps)
	}

	acct, err := deps.GetAccount(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return LoginAccount{}, false, fmt.Errorf("%w: %w", deps.Errors.AccountUnavailable, err)
		}
		// Burn the same hashing time as a real check so absence is not observable.
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return LoginAccount{}, false, failedAttempt(ctx, email, deps)
	}

	ok, err := deps.VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		deps.Warn("stored password hash could not be verified", "user_id", acct.UserID, "error", err.Error())
		return LoginAccount{}, false, failedAttempt(ctx, email, deps)
	}
	if !ok {
		return LoginAccount{}, false, failedAttempt(ctx, email, deps)
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email); err != nil {
			deps.Warn("login rate reset failed", "email", email, "error", err.Error())
		}
	}

	rehashed := false
	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil {
		if needs, err := deps.PasswordNeedsUpgrade(acct.PasswordHash); err == nil && needs {
			if upgraded, err := deps.HashPassword(password); err == nil {
				acct.PasswordHash = upgraded
				rehashed = true
			} else {
				deps.Warn("password hash upgrade generation failed", "user_id", acct.UserID)
			}
		}
	}

	return acct, rehashed, nil
}

func failedAttempt(ctx context.Context, email string, deps LoginDeps) error {
	if deps.IncrementLoginRate != nil {
		if err := deps.IncrementLoginRate(ctx, email); err != nil {
			return deps.Errors.LoginRateLimited
		}
	}
	return deps.Errors.InvalidCredentials
}
