// Package flows contains the login orchestrator behind Engine.Login.
//
// [RunLogin] accepts a typed dependency struct of function fields and returns
// results without side effects beyond those dependencies. The Engine builds
// the struct once; tests substitute in-memory fakes.
//
// # Login state machine
//
//	start -> strategy_resolved -> ban_checked -> identity_verified
//	      -> token_issued -> persisted -> responded
//
// Any step may move to failed. The stage reached is attached to audit events.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import gatekeeper (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
