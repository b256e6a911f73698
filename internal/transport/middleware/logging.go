package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/pkg/logger"
)

// maxLoggedBody caps how much of a request or response body is logged.
const maxLoggedBody = 4096

const redacted = "[FILTERED]"

// secretMarkers flag a header or JSON key as secret when its lower-cased
// name contains any of them.
var secretMarkers = []string{
	"password",
	"salt",
	"token",
	"authorization",
	"secret",
	"api_key",
	"cookie",
	"session",
	"credential",
}

// LoggingMiddleware writes one record per request carrying the request and
// response bodies with secrets masked. It prefers the request-scoped logger
// set by RequestID.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lg := logger.FromOr(r.Context(), base)

			reqBody := peekBody(r)
			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			lg.Log(r.Context(), levelFor(rec.status), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", maskHeaders(r.Header),
				"request_body", maskBody(reqBody),
				"status", rec.status,
				"response_size", rec.size,
				"response_body", maskBody(rec.body.Bytes()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// peekBody reads up to maxLoggedBody bytes and restores r.Body so the
// handler still sees the full stream.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

type recordingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		rw.body.Write(b[:min(room, len(b))])
	}
	rw.size += len(b)
	return rw.ResponseWriter.Write(b)
}

func maskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSecret(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// maskBody masks secret keys in JSON bodies. Bodies that are not JSON are
// logged only by size, since they cannot be masked field by field.
func maskBody(body []byte) any {
	if len(body) == 0 {
		return ""
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return slog.GroupValue(slog.String("type", "opaque"), slog.Int("bytes", len(body)))
	}
	masked, err := json.Marshal(maskJSON(doc))
	if err != nil {
		return redacted
	}
	return string(masked)
}

func maskJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if isSecret(k) {
				t[k] = redacted
			} else {
				t[k] = maskJSON(inner)
			}
		}
		return t
	case []any:
		for i := range t {
			t[i] = maskJSON(t[i])
		}
		return t
	default:
		return v
	}
}

func isSecret(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range secretMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
