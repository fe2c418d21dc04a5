package gatekeeper

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Login uses it for the
// optional per-IP throttle and for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIP returns the IP attached by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
