package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Event is a single login audit record.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Stamp fills ID and Timestamp when they are unset.
func (e *Event) Stamp(now time.Time) {
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	if e.ID == "" {
		e.ID = ulid.MustNew(ulid.Timestamp(e.Timestamp), ulid.DefaultEntropy()).String()
	}
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// LogSink writes events through a zerolog logger. Failed events log at warn.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	ev := s.logger.Info()
	if !event.Success {
		ev = s.logger.Warn()
	}
	ev = ev.Str("audit_id", event.ID).
		Str("event_type", event.EventType).
		Bool("success", event.Success).
		Time("at", event.Timestamp)
	if event.UserID != "" {
		ev = ev.Str("user_id", event.UserID)
	}
	if event.IP != "" {
		ev = ev.Str("ip", event.IP)
	}
	if event.Error != "" {
		ev = ev.Str("error", event.Error)
	}
	for k, v := range event.Metadata {
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
}
