package logging

import (
	"io"
	"log/slog"
)

// New returns a JSON logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup installs a JSON logger as the process default and returns it.
func Setup(w io.Writer, level slog.Level, environment string) *slog.Logger {
	logger := New(w, level).With("service", "devcycle", "env", environment)
	slog.SetDefault(logger)
	return logger
}
