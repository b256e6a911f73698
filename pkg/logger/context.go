package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With stores a child of the context logger carrying fields, such as the
// trace ID set per request or the authenticated user ID.
func With(ctx context.Context, fields ...any) context.Context {
	l := FromOr(ctx, nil).With(fields...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request-scoped logger, or the process logger.
func From(ctx context.Context) *slog.Logger {
	return FromOr(ctx, LoggerWrapper())
}

// FromOr returns the request-scoped logger, falling back to fallback, then
// to the process logger, then to slog.Default.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	if l := LoggerWrapper(); l != nil {
		return l
	}
	return slog.Default()
}
