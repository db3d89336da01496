// Package logger builds the slog loggers used by the stocker binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the level and output format of a logger.
type Options struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // "text" or "json"
}

// New constructs a logger writing to stderr and tagged with the service name.
func New(service string, opts Options) *slog.Logger {
	return NewWithWriter(os.Stderr, service, opts)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service string, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h).With("service", service)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
