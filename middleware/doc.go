// Package middleware guards net/http handlers with gatekeeper session tokens.
//
// [RequireJWTOnly] verifies signature and expiry without touching Redis.
// [RequireStrict] also rejects tokens replaced by a later login. Both read
// a Bearer token from the Authorization header and put the validated
// [gatekeeper.Session] in the request context.
package middleware
