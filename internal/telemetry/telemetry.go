// Package telemetry provides the lightweight span/label logging used by the
// older, hot-path subsystems of this module (document manager, parse cache,
// diagnostics). It mirrors the call shape of golang.org/x/tools/internal/event
// (Log, Error, Start/done) but renders through log/slog, which
// internal/watch's event loop uses directly.
package telemetry

import (
	"context"
	"log/slog"
	"time"
)

// Label is a single key/value pair attached to an event.
type Label struct {
	Key   string
	Value any
}

// Of builds a Label for key.
func Of(key string, value any) Label { return Label{Key: key, Value: value} }

var defaultLogger = slog.Default()

// SetLogger replaces the logger used by Log, Error, and Start. Tests may
// install a logger backed by a buffer to assert on emitted events.
func SetLogger(l *slog.Logger) { defaultLogger = l }

// Log records an informational event, e.g. telemetry.Log(ctx, "New session",
// telemetry.Of("session", s.ID())).
func Log(ctx context.Context, msg string, labels ...Label) {
	defaultLogger.LogAttrs(ctx, slog.LevelInfo, msg, toAttrs(labels)...)
}

// Error records a failed operation that is not necessarily fatal.
func Error(ctx context.Context, msg string, err error, labels ...Label) {
	attrs := append(toAttrs(labels), slog.Any("error", err))
	defaultLogger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

// Start begins a named span, returning a derived context and a done
// function that must be called to close it. Spans are logged at debug
// level with their wall-clock duration.
func Start(ctx context.Context, name string, labels ...Label) (context.Context, func()) {
	start := time.Now()
	attrs := toAttrs(labels)
	defaultLogger.LogAttrs(ctx, slog.LevelDebug, "start: "+name, attrs...)
	return ctx, func() {
		elapsed := time.Since(start)
		done := append(attrs, slog.Duration("elapsed", elapsed))
		defaultLogger.LogAttrs(ctx, slog.LevelDebug, "end: "+name, done...)
	}
}

func toAttrs(labels []Label) []slog.Attr {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]slog.Attr, len(labels))
	for i, l := range labels {
		attrs[i] = slog.Any(l.Key, l.Value)
	}
	return attrs
}
