// Package logger builds the *slog.Logger instances used across Filey: plain
// text by default, JSON for services, or the charmbracelet pretty handler for
// interactive CLI output.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a logger from the given options. With no options it logs Info
// and above as text to stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stdout
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	var handler slog.Handler
	switch {
	case c.pretty:
		charmLevel := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			charmLevel = charmlog.DebugLevel
		}
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel,
			ReportCaller:    c.source,
			ReportTimestamp: true,
		})
	case c.json:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}

	return slog.New(handler)
}

// Nop returns a logger that drops everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
