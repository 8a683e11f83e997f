// Package logging builds the slog loggers used across the host: a text or
// JSON handler at a configured level, and module-scoped children.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler.
type Config struct {
	// Level is one of debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is "text" or "json".
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger for cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	return slog.New(h)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Module returns a child of logger tagged with module=name. A nil logger
// yields a discarding one.
func Module(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}

	return logger.With(slog.String("module", name))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
