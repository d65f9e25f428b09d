// Package internal holds process-level plumbing: configuration, logging,
// and database migrations.
package internal

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs the process logger. Development gets a human-readable
// console writer; everything else emits JSON.
func NewLogger(w io.Writer, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
