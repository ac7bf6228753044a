// Package logger, uygulamanın kök zerolog logger'ını kurar.
//
// Her component kendi alt logger'ını alır:
//
//	log := logger.With().Str("component", "poll_scheduler").Logger()
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New, verilen seviyede JSON loglayan kök logger döner.
// Bilinmeyen seviye "info" kabul edilir.
func New(level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "badgesync").Logger()
}

// NewConsole, development için okunabilir çıktı veren logger döner.
func NewConsole(level string) zerolog.Logger {
	return New(level, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}
