// Package rate implements the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR plus EXPIRE on the first hit. Keys:
//   - <prefix>:e:<email> counts failures per email
//   - <prefix>:ip:<ip> counts failures per client IP when enabled
//
// A limiter with MaxLoginAttempts of zero is disabled and never touches Redis.
package rate
