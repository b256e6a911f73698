package middleware

import (
	"bytes"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
})

var _ = Describe("IPRateLimiter", func() {
	var (
		limiter *IPRateLimiter
		now     time.Time
	)

	BeforeEach(func() {
		limiter = NewIPRateLimiter(RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2, IdleTTL: time.Minute})
		now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }
	})

	It("allows the burst, then rejects with a wait until the next token", func() {
		Expect(limiter.Reserve("10.0.0.1")).To(BeTrue())
		Expect(limiter.Reserve("10.0.0.1")).To(BeTrue())

		ok, wait := limiter.Reserve("10.0.0.1")
		Expect(ok).To(BeFalse())
		Expect(wait).To(BeNumerically("~", time.Second, 10*time.Millisecond))

		now = now.Add(time.Second)
		ok, _ = limiter.Reserve("10.0.0.1")
		Expect(ok).To(BeTrue())
	})

	It("keeps separate buckets per address", func() {
		limiter.Reserve("10.0.0.1")
		limiter.Reserve("10.0.0.1")
		ok, _ := limiter.Reserve("10.0.0.2")
		Expect(ok).To(BeTrue())
	})

	It("evicts idle buckets", func() {
		limiter.Reserve("10.0.0.1")
		limiter.Reserve("10.0.0.2")
		Expect(limiter.Len()).To(Equal(2))

		now = now.Add(2 * time.Minute)
		limiter.Reserve("10.0.0.3")
		Expect(limiter.Len()).To(Equal(1))
	})

	It("answers 429 with Retry-After from the middleware", func() {
		h := limiter.Middleware(okHandler)
		var rec *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			req.RemoteAddr = "192.0.2.1:5000"
			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, req)
		}
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).To(Equal("1"))
		Expect(rec.Body.String()).To(ContainSubstring("TOO_MANY_ATTEMPTS"))
	})
})

var _ = Describe("ClientIP", func() {
	It("strips the port", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "[2001:db8::1]:443"
		Expect(ClientIP(req)).To(Equal("2001:db8::1"))
	})

	It("falls back to unknown", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ""
		Expect(ClientIP(req)).To(Equal("unknown"))
	})
})

var _ = Describe("HTTPMetrics", func() {
	It("labels requests by route pattern", func() {
		reg := prometheus.NewRegistry()
		m, err := NewHTTPMetrics(reg)
		Expect(err).NotTo(HaveOccurred())

		r := chi.NewRouter()
		r.Use(m.Instrument)
		r.Get("/hazards/{id}", okHandler)
		for _, path := range []string{"/hazards/1", "/hazards/2"} {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}

		families, err := reg.Gather()
		Expect(err).NotTo(HaveOccurred())
		var found bool
		for _, f := range families {
			if f.GetName() != "http_requests_total" {
				continue
			}
			Expect(f.GetMetric()).To(HaveLen(1))
			Expect(f.GetMetric()[0].GetCounter().GetValue()).To(Equal(2.0))
			for _, l := range f.GetMetric()[0].GetLabel() {
				if l.GetName() == "route" {
					Expect(l.GetValue()).To(Equal("/hazards/{id}"))
					found = true
				}
			}
		}
		Expect(found).To(BeTrue())
	})

	It("refuses double registration", func() {
		reg := prometheus.NewRegistry()
		_, err := NewHTTPMetrics(reg)
		Expect(err).NotTo(HaveOccurred())
		_, err = NewHTTPMetrics(reg)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("masks credentials in logged bodies and headers", func() {
		var out bytes.Buffer
		lg := slog.New(slog.NewTextHandler(&out, nil))
		h := LoggingMiddleware(lg)(okHandler)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"wes","password":"hunter2"}`))
		req.Header.Set("Authorization", "Bearer abc.def")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(out.String()).NotTo(ContainSubstring("hunter2"))
		Expect(out.String()).NotTo(ContainSubstring("abc.def"))
		Expect(out.String()).To(ContainSubstring("wes"))
	})

	It("logs non-JSON bodies by size only", func() {
		var out bytes.Buffer
		lg := slog.New(slog.NewTextHandler(&out, nil))
		h := LoggingMiddleware(lg)(okHandler)

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/",
			strings.NewReader("username=wes&password=hunter2")))

		Expect(out.String()).NotTo(ContainSubstring("hunter2"))
		Expect(out.String()).To(ContainSubstring("request_body.bytes=29"))
	})

	It("leaves the request body readable for the handler", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		var seen string
		h := LoggingMiddleware(lg)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`)))
		Expect(seen).To(Equal(`{"title":"x"}`))
	})
})

var _ = Describe("RequestID", func() {
	It("generates a trace id and exposes it to handlers", func() {
		var inCtx string
		h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			inCtx = internal.TraceIDFromContext(r.Context())
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(inCtx).NotTo(BeEmpty())
		Expect(rec.Header().Get(TraceHeader)).To(Equal(inCtx))
	})

	It("keeps a caller supplied trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, "trace-123")
		rec := httptest.NewRecorder()
		RequestID(okHandler).ServeHTTP(rec, req)
		Expect(rec.Header().Get(TraceHeader)).To(Equal("trace-123"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("returns a generic 500 without the panic value", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := RecoveryMiddleware(lg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("db password is swordfish")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("swordfish"))
		Expect(rec.Body.String()).To(ContainSubstring("INTERNAL_ERROR"))
	})
})

var _ = Describe("CORS", func() {
	It("echoes allowed origins and answers preflight", func() {
		h := CORS([]string{"https://app.example.com/"})(okHandler)
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/hazards", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
	})

	It("ignores other origins", func() {
		h := CORS([]string{"https://app.example.com"})(okHandler)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})

var _ = Describe("SecurityHeaders", func() {
	serve := func(trustProxy bool, prep func(*http.Request)) http.Header {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/hazards", nil)
		if prep != nil {
			prep(req)
		}
		rec := httptest.NewRecorder()
		SecurityHeaders(trustProxy)(okHandler).ServeHTTP(rec, req)
		return rec.Header()
	}

	It("hardens every response", func() {
		h := serve(false, nil)
		Expect(h.Get("X-Frame-Options")).To(Equal("DENY"))
		Expect(h.Get("X-Content-Type-Options")).To(Equal("nosniff"))
		Expect(h.Get("Referrer-Policy")).To(Equal("strict-origin-when-cross-origin"))
		Expect(h.Get("Permissions-Policy")).To(ContainSubstring("camera=()"))
		Expect(h.Get("Content-Security-Policy")).To(ContainSubstring("frame-ancestors 'none'"))
	})

	It("sends HSTS only over TLS", func() {
		Expect(serve(false, nil).Get("Strict-Transport-Security")).To(BeEmpty())

		h := serve(false, func(r *http.Request) { r.TLS = &tls.ConnectionState{} })
		Expect(h.Get("Strict-Transport-Security")).To(Equal("max-age=31536000; includeSubDomains"))
	})

	It("honours X-Forwarded-Proto only behind a trusted proxy", func() {
		forwarded := func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }
		Expect(serve(false, forwarded).Get("Strict-Transport-Security")).To(BeEmpty())
		Expect(serve(true, forwarded).Get("Strict-Transport-Security")).NotTo(BeEmpty())
	})
})
