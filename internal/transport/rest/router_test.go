package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/transport/middleware"
	"github.com/frahmantamala/safety-hazards/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// stubAuth accepts "worker" and "officer" bearer tokens.
type stubAuth struct{}

func (stubAuth) Login(context.Context, auth.LoginDTO, string) (auth.AuthTokens, error) {
	return auth.AuthTokens{AccessToken: "worker", TokenType: "Bearer"}, nil
}

func (stubAuth) RefreshTokens(context.Context, string) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, auth.ErrInvalidToken
}

func (stubAuth) ValidateAccessToken(token string) (*auth.Claims, error) {
	switch token {
	case "worker":
		return &auth.Claims{UserID: "1", Role: "FieldWorker"}, nil
	case "officer":
		return &auth.Claims{UserID: "9", Role: "SafetyOfficer"}, nil
	}
	return nil, auth.ErrInvalidToken
}

func (stubAuth) PrincipalFromClaims(_ context.Context, c *auth.Claims) (*auth.Principal, error) {
	role, _ := access.ParseRole(c.Role)
	if c.UserID == "9" {
		return &auth.Principal{ID: 9, Username: "officer", Role: role}, nil
	}
	return &auth.Principal{ID: 1, Username: "worker", Role: role}, nil
}

type stubUsers struct{}

func (stubUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	return &user.User{ID: id, Username: "someone", IsActive: true}, nil
}

func (stubUsers) ListActiveByRole(context.Context, access.Role) ([]*user.User, error) {
	return []*user.User{{ID: 7, Username: "manager", Role: access.RoleSiteManager, IsActive: true}}, nil
}

var _ = Describe("Router", func() {
	var (
		router *chi.Mux
		reg    *prometheus.Registry
		rt     Routes
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		metrics, err := middleware.NewHTTPMetrics(reg)
		Expect(err).NotTo(HaveOccurred())

		rt = Routes{
			DB:              fakePinger{},
			AuthHandler:     auth.NewHandler(stubAuth{}),
			UserHandler:     user.NewHandler(stubUsers{}),
			LoginLimiter:    middleware.NewIPRateLimiter(middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2, IdleTTL: time.Minute}),
			Metrics:         metrics,
			MetricsGatherer: reg,
			CORSOrigins:     []string{"https://app.example.com"},
		}
	})

	JustBeforeEach(func() {
		router = chi.NewRouter()
		RegisterAllRoutes(router, rt, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.RemoteAddr = "198.51.100.7:40000"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Describe("health", func() {
		It("answers ping", func() {
			rec := do(http.MethodGet, "/api/v1/ping", "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("X-Content-Type-Options")).To(Equal("nosniff"))
			Expect(rec.Header().Get("X-Frame-Options")).To(Equal("DENY"))
		})

		It("reports a healthy database", func() {
			rec := do(http.MethodGet, "/api/v1/health", "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"healthy"`))
		})

		Context("when the database is down", func() {
			BeforeEach(func() {
				rt.DB = fakePinger{err: errors.New("connection refused")}
			})

			It("returns 503 without leaking the driver error", func() {
				rec := do(http.MethodGet, "/api/v1/health", "", "")
				Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
				Expect(rec.Body.String()).NotTo(ContainSubstring("connection refused"))
			})
		})

		Context("with an extra failing check", func() {
			BeforeEach(func() {
				rt.HealthChecks = map[string]CheckFunc{
					"schema": func(context.Context) (map[string]any, string, bool) {
						return nil, "migrations not applied", false
					},
				}
			})

			It("reports every component and turns unhealthy", func() {
				rec := do(http.MethodGet, "/api/v1/health", "", "")
				Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

				var resp HealthResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Components).To(HaveKey("postgres"))
				Expect(resp.Components["postgres"].Status).To(Equal(HealthHealthy))
				Expect(resp.Components["schema"].Message).To(Equal("migrations not applied"))
			})
		})
	})

	Describe("authentication", func() {
		It("rejects protected routes without a token", func() {
			Expect(do(http.MethodGet, "/api/v1/users/me", "", "").Code).To(Equal(http.StatusUnauthorized))
		})

		It("serves protected routes with a valid token", func() {
			rec := do(http.MethodGet, "/api/v1/users/me", "worker", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("restricts the user directory to safety officers", func() {
			Expect(do(http.MethodGet, "/api/v1/users?role=SiteManager", "worker", "").Code).To(Equal(http.StatusForbidden))
			Expect(do(http.MethodGet, "/api/v1/users?role=SiteManager", "officer", "").Code).To(Equal(http.StatusOK))
		})

		It("rate limits login per client address", func() {
			body := `{"username":"worker","password":"secret"}`
			Expect(do(http.MethodPost, "/api/v1/auth/login", "", body).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodPost, "/api/v1/auth/login", "", body).Code).To(Equal(http.StatusOK))

			rec := do(http.MethodPost, "/api/v1/auth/login", "", body)
			Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
			Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())
		})
	})

	Describe("observability", func() {
		It("tags responses with a trace id", func() {
			rec := do(http.MethodGet, "/api/v1/ping", "", "")
			Expect(rec.Header().Get(middleware.TraceHeader)).NotTo(BeEmpty())
		})

		It("exposes request metrics", func() {
			do(http.MethodGet, "/api/v1/ping", "", "")
			rec := do(http.MethodGet, "/metrics", "", "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`route="/api/v1/ping"`))
		})
	})
})
