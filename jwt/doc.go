// Package jwt signs and verifies session tokens.
//
// A session token is a compact JWS whose claims carry the account email, the
// linked external identity id (when one was verified), and the age-gate flag.
// The package knows nothing about which token is currently active for an
// account; that is the session store's job.
package jwt
