package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/transport"
)

// RecoveryMiddleware turns a panic into a 500 response. The panic value is
// logged, never returned to the client.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"url", r.URL.Path,
						"trace_id", internal.TraceIDFromContext(r.Context()),
						"stack", string(debug.Stack()))

					transport.WriteAppError(w, internal.NewInternalError("Internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
