// Package gatekeeper issues game-client sessions.
//
// A login presents an email with a password, a previously issued session
// token, or both. [Engine.Login] tries the token first and falls back to the
// password on any token failure, rejects banned accounts, and in production
// requires a linked external identity whose age decides the age gate. It then
// signs a new token and stores it as the account's single valid session.
//
// Build an Engine with [New]:
//
//	engine, err := gatekeeper.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithAccountProvider(accounts).
//		WithIdentityLinks(links).
//		WithLogger(logger).
//		Build()
//
// Concurrent logins for the same account race on the session write. The last
// write wins and may invalidate a token already returned to the other caller.
package gatekeeper
