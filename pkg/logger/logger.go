// Package logger provides slog-based structured logging helpers.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

// Module provides the application logger.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates the root slog logger. The level is taken from LOG_LEVEL
// (debug, info, warn/warning, error; case-insensitive, default info). When
// GO_ENV=production the handler emits JSON, otherwise human-readable text.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("GO_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Scope returns a slog attribute identifying the component emitting the log.
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
