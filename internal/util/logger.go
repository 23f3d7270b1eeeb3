package util

import (
	"log/slog"
	"os"
)

var Logger *slog.Logger

func init() {
	// Default to a JSON handler writing to stderr; stdout is reserved for
	// rendered schemas.
	Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	slog.SetDefault(Logger)
}

// SetVerbose switches the global logger to debug level.
func SetVerbose() {
	Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(Logger)
}
