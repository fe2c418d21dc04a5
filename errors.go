package gatekeeper

import "errors"

var (
	// ErrInvalidRequest is returned when the login request is malformed. The
	// concrete error is a *ValidationError.
	ErrInvalidRequest = errors.New("invalid login request")
	// ErrInvalidCredentials is returned when neither the token nor the
	// email/password pair authenticates. Unknown email and wrong password are
	// not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenAuthFailed marks a rejected session token. Login recovers from it
	// by falling back to password authentication; it never reaches callers.
	ErrTokenAuthFailed = errors.New("token authentication failed")
	// ErrPermanentBan is returned when the account is banned.
	ErrPermanentBan = errors.New("account permanently banned")
	// ErrIdentityNotLinked is returned when identity verification is required
	// and the account has no linked external identity.
	ErrIdentityNotLinked = errors.New("account not linked to external identity")
	// ErrLoginRateLimited is returned when the failed-login budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrSessionUnavailable wraps session store failures.
	ErrSessionUnavailable = errors.New("session store unavailable")
	// ErrAccountUnavailable wraps account provider failures.
	ErrAccountUnavailable = errors.New("account store unavailable")
	// ErrIdentityUnavailable wraps identity link lookup failures.
	ErrIdentityUnavailable = errors.New("identity link lookup unavailable")
	// ErrSessionInvalid is returned by ValidateSession for a token that does
	// not parse, has expired, or has been replaced by a newer login.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrAccountNotFound must be returned by AccountProvider when no account
	// has the requested email.
	ErrAccountNotFound = errors.New("account not found")
)
