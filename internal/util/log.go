package util

import (
	"context"
	"log/slog"
)

// contextKey is used to store the logger in a context
type contextKey string

const loggerKey contextKey = "logger"

// FromContext retrieves a logger from the context, falling back to the
// global logger when none is stored.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return Logger
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithFields adds fields to the logger in the context, creating one when
// necessary.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := FromContext(ctx)
	for key, value := range fields {
		logger = logger.With(key, value)
	}
	return WithLogger(ctx, logger)
}
