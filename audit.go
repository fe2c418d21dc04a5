package gatekeeper

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/playgate/gatekeeper/internal/audit"
)

// AuditEvent is a login audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLoginSuccess     = "login_success"
	AuditLoginFailure     = "login_failure"
	AuditLoginRateLimited = "login_rate_limited"
	AuditLoginBanned      = "login_banned"
	AuditIdentityRejected = "identity_rejected"
)

// NewChannelSink returns a sink that buffers events in a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink returns a sink that writes events through logger.
func NewLogSink(logger zerolog.Logger) *audit.LogSink {
	return audit.NewLogSink(logger)
}
