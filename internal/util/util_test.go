package util

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) != Logger {
		t.Fatal("an empty context should fall back to the global logger")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger, _ := captureLogger()
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("the stored logger should come back out")
	}
}

func TestWithFields(t *testing.T) {
	logger, buf := captureLogger()
	ctx := WithLogger(context.Background(), logger)
	ctx = WithFields(ctx, map[string]any{"source": "data.json"})
	FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"source":"data.json"`) {
		t.Fatalf("field missing from output: %s", buf.String())
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("boom")
	wrapped := WrapError(cause, "loading failed")
	if !errors.Is(wrapped, cause) {
		t.Fatal("wrapped error should unwrap to its cause")
	}
	if wrapped.Error() != "loading failed: boom" {
		t.Fatalf("unexpected message: %q", wrapped.Error())
	}
	if wrapped.Stack == "" {
		t.Fatal("a stack trace should be captured")
	}
}

func TestWrapErrorCombines(t *testing.T) {
	cause := errors.New("boom")
	inner := WrapError(cause, "inner", slog.String("path", "x"))
	outer := WrapError(inner, "outer", slog.String("step", "load"))
	if outer.Message != "outer: inner" {
		t.Fatalf("messages should combine: %q", outer.Message)
	}
	if outer.OriginalErr != cause {
		t.Fatal("the root cause should be preserved")
	}
	if outer.Stack != inner.Stack {
		t.Fatal("the stack from the first wrap should be kept")
	}
	if len(outer.Attrs) != 2 {
		t.Fatalf("attributes should accumulate, got %d", len(outer.Attrs))
	}
}

func TestLogError(t *testing.T) {
	logger, buf := captureLogger()
	LogError(logger, WrapError(errors.New("boom"), "it broke"))
	out := buf.String()
	if !strings.Contains(out, "it broke") || !strings.Contains(out, "boom") {
		t.Fatalf("structured error details missing: %s", out)
	}
	buf.Reset()
	LogError(logger, errors.New("plain"))
	if !strings.Contains(buf.String(), "plain") {
		t.Fatalf("plain errors should still log: %s", buf.String())
	}
	buf.Reset()
	LogError(logger, nil)
	if buf.Len() != 0 {
		t.Fatal("nil errors should log nothing")
	}
}
