// Package logger builds the service's log/slog logger.
//
// Production uses JSON lines for log aggregators; every other environment
// gets the human-readable text handler at debug level.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New returns a logger and installs it as the slog default.
func New(production bool) *slog.Logger {
	l := NewWithWriter(production, os.Stdout)
	slog.SetDefault(l)
	return l
}

// NewWithWriter is New without touching the default logger.
func NewWithWriter(production bool, w io.Writer) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Component tags l with the emitting component, e.g. "api" or "projector".
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
