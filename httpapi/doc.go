// Package httpapi serves gatekeeper logins over HTTP with gin.
//
// Routes:
//
//	POST /login    authenticate and issue a session token
//	GET  /session  current session for a Bearer token, strict mode
//	GET  /healthz  session store reachability
//	GET  /metrics  Prometheus exposition, when a handler is supplied
//
// Successful logins answer with the legacy client payload built from a
// [Compat] template. Failures answer {"error": code, "message": text}.
package httpapi
