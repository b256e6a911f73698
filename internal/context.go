package internal

import (
	"context"
	"time"
)

// DefaultTimeout bounds outbound calls made without an explicit deadline.
const DefaultTimeout = 5 * time.Second

type traceKey struct{}

// TraceIDFromContext returns the request trace id, or "" outside a request.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// WithTimeout derives a context bounded by d, or by DefaultTimeout when d
// is not positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
