// Package session keeps the single active session token per account in Redis.
//
// # Single-active-session semantics
//
// The store maps an account email to the token string that is currently
// valid for it. [Store.Set] overwrites unconditionally: the newest write wins
// and silently invalidates whatever was stored before. There is no
// compare-and-swap, so two logins racing for the same account both succeed
// and whichever Set lands last becomes canonical. The loser may already have
// handed its token to a client; that token is dead on arrival.
//
// # What this package must NOT do
//
//   - Parse or verify tokens (that is the jwt package).
//   - Look up accounts or make authentication decisions.
package session
