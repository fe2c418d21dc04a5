package main

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
)

// newLogger builds the process logger. Format is "json" or "console".
func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), oops.Code("CONFIG_INVALID").With("log_level", level).Wrap(err)
	}

	switch strings.ToLower(format) {
	case "json", "":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), oops.Code("CONFIG_INVALID").Errorf("unknown log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "gatekeeper").Logger(), nil
}
