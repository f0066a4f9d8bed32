// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default slog logger.
// Unrecognized level names fall back to info.
func Setup(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// WithModule returns the default logger tagged with the component it serves.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
