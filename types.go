package gatekeeper

import (
	"context"
	"time"

	"github.com/playgate/gatekeeper/identity"
)

// Account is the persisted user record consulted at login. Email is unique.
type Account struct {
	UserID       string
	Email        string
	Username     string
	PasswordHash string
	Banned       bool
	LastLoginAt  time.Time
}

// AccountProvider loads and persists accounts.
//
// GetAccountByEmail must return ErrAccountNotFound (possibly wrapped) when no
// account has the email. SaveAccount persists the login mutation: the last
// login time and, when upgraded, the password hash.
type AccountProvider interface {
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	SaveAccount(ctx context.Context, account Account) error
}

// IdentityLinkProvider returns the external identity ids linked to an email.
// It is only consulted when the environment requires identity verification.
type IdentityLinkProvider = identity.LinkSource

// LoginRequest is the input to Engine.Login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required_without=Token,max=1024"`
	Token    string `json:"token,omitempty" validate:"max=8192"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Account Account
	// Token is the session token currently stored for the account.
	Token string
	// ExternalID is the linked identity id, empty outside production.
	ExternalID string
	// AgeGate reports whether the linked identity is older than seven days.
	// It is always true when identity verification is not required.
	AgeGate bool
	// Strategy is "token" or "password".
	Strategy string
}

// Environment names the deployment mode.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
)

// RequiresIdentityVerification reports whether logins must have a linked
// external identity.
func (e Environment) RequiresIdentityVerification() bool {
	return identity.PolicyFor(string(e)).RequiresIdentityVerification
}
