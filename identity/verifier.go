package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotLinked is returned when the account has no linked external identity.
	ErrNotLinked = errors.New("account not linked to external identity")
	// ErrLookupFailed wraps failures of the underlying link source.
	ErrLookupFailed = errors.New("external identity lookup failed")
)

// LinkSource returns the external identity ids linked to an account email.
type LinkSource interface {
	LinkedIDs(ctx context.Context, email string) ([]string, error)
}

// Policy is decided once at startup from the deployment environment.
type Policy struct {
	RequiresIdentityVerification bool
}

// PolicyFor returns the policy for an environment name. Only "production"
// requires identity verification.
func PolicyFor(environment string) Policy {
	return Policy{RequiresIdentityVerification: environment == "production"}
}

// Result is what the verification step carries forward into token issuance.
type Result struct {
	ExternalID string
	AgeGate    bool
}

// Verifier applies [Policy] to an account email.
type Verifier struct {
	policy Policy
	source LinkSource
	now    func() time.Time
}

// NewVerifier builds a Verifier. source may be nil when the policy does not
// require verification.
func NewVerifier(policy Policy, source LinkSource, now func() time.Time) (*Verifier, error) {
	if policy.RequiresIdentityVerification && source == nil {
		return nil, errors.New("identity verification requires a link source")
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{policy: policy, source: source, now: now}, nil
}

// Policy returns the policy the verifier was built with.
func (v *Verifier) Policy() Policy {
	return v.policy
}

// Verify looks up the linked identity for email. When the policy does not
// require verification it returns an empty id with the age gate satisfied.
func (v *Verifier) Verify(ctx context.Context, email string) (Result, error) {
	if !v.policy.RequiresIdentityVerification {
		return Result{AgeGate: true}, nil
	}

	ids, err := v.source.LinkedIDs(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	if len(ids) == 0 {
		return Result{}, ErrNotLinked
	}

	id := ids[0]
	return Result{
		ExternalID: id,
		AgeGate:    OldEnough(id, v.now()),
	}, nil
}
