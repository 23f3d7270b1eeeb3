package util

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// StructaError is a custom error type for adding context and stack traces.
type StructaError struct {
	OriginalErr error
	Message     string
	Stack       string
	Attrs       []slog.Attr
}

// Error returns the error message.
func (e *StructaError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *StructaError) Unwrap() error {
	return e.OriginalErr
}

const maxStackLength = 8192 // Max length of stack trace to capture

// NewError creates a new StructaError without an original error.
func NewError(message string, attrs ...slog.Attr) *StructaError {
	return newStructaError(nil, message, attrs...)
}

// WrapError creates a new StructaError, wrapping an existing error.
func WrapError(err error, message string, attrs ...slog.Attr) *StructaError {
	return newStructaError(err, message, attrs...)
}

func newStructaError(originalErr error, message string, attrs ...slog.Attr) *StructaError {
	buf := make([]byte, maxStackLength)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// If the original error is already a StructaError, combine messages and
	// attributes but keep the stack captured where the error was first
	// wrapped.
	var se *StructaError
	if errors.As(originalErr, &se) {
		combinedAttrs := append(append([]slog.Attr{}, se.Attrs...), attrs...)
		newMessage := message
		if se.Message != "" {
			newMessage = fmt.Sprintf("%s: %s", message, se.Message)
		}
		return &StructaError{
			OriginalErr: se.OriginalErr,
			Message:     newMessage,
			Stack:       se.Stack,
			Attrs:       combinedAttrs,
		}
	}

	return &StructaError{
		OriginalErr: originalErr,
		Message:     message,
		Stack:       stack,
		Attrs:       attrs,
	}
}

// LogError logs a StructaError with its structured context and stack trace.
// If the error is not a StructaError, it logs it as a standard error
// message.
func LogError(logger *slog.Logger, err error) {
	if err == nil {
		return
	}

	var se *StructaError
	if !errors.As(err, &se) {
		logger.Error("An error occurred", slog.String("error", err.Error()))
		return
	}

	logAttrs := []any{
		slog.String("error_message", se.Message),
	}
	if se.OriginalErr != nil {
		logAttrs = append(logAttrs, slog.String("original_error", se.OriginalErr.Error()))
	}
	logAttrs = append(logAttrs, slog.String("stack_trace", se.Stack))
	for _, attr := range se.Attrs {
		logAttrs = append(logAttrs, attr)
	}
	logger.Error("An error occurred", logAttrs...)
}
