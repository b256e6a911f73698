package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/hazard"
	"github.com/frahmantamala/safety-hazards/internal/hazardtype"
	"github.com/frahmantamala/safety-hazards/internal/transport/middleware"
	"github.com/frahmantamala/safety-hazards/internal/transport/swagger"
	"github.com/frahmantamala/safety-hazards/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes groups everything RegisterAllRoutes mounts. Nil handlers leave
// their routes unregistered.
type Routes struct {
	DB                Pinger
	HealthChecks      map[string]CheckFunc
	AuthHandler       *auth.Handler
	UserHandler       *user.Handler
	HazardHandler     *hazard.Handler
	HazardTypeHandler *hazardtype.Handler

	LoginLimiter    *middleware.IPRateLimiter
	Metrics         *middleware.HTTPMetrics
	MetricsGatherer prometheus.Gatherer
	MetricsPath     string

	CORSOrigins []string
	TrustProxy  bool
	OpenAPIPath string
}

func RegisterAllRoutes(router *chi.Mux, rt Routes, logger *slog.Logger) {
	healthHandler := NewHealthHandler(rt.DB)
	for name, check := range rt.HealthChecks {
		healthHandler.AddCheck(name, check)
	}
	rbac := auth.NewRoleAuthorization(logger)

	router.Use(middleware.SecurityHeaders(rt.TrustProxy))
	router.Use(middleware.CORS(rt.CORSOrigins))
	if rt.TrustProxy {
		router.Use(chiMiddleware.RealIP)
	}
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if rt.Metrics != nil {
		router.Use(rt.Metrics.Instrument)
	}

	openAPIPath := rt.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	if rt.MetricsGatherer != nil {
		metricsPath := rt.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.Handle(metricsPath, promhttp.HandlerFor(rt.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if rt.AuthHandler == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.Group(func(lr chi.Router) {
				if rt.LoginLimiter != nil {
					lr.Use(rt.LoginLimiter.Middleware)
				}
				lr.Post("/login", rt.AuthHandler.Login)
			})
			sr.Post("/refresh", rt.AuthHandler.RefreshToken)
			sr.Post("/logout", rt.AuthHandler.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(rt.AuthHandler.AuthMiddleware)
			pr.Use(rbac.RequireAuthenticatedRole())

			if rt.UserHandler != nil {
				pr.Get("/users/me", rt.UserHandler.GetCurrentUser)
				pr.Group(func(or chi.Router) {
					or.Use(rbac.RequireRole(access.RoleSafetyOfficer))
					or.Get("/users", rt.UserHandler.ListUsers)
				})
			}

			if rt.HazardTypeHandler != nil {
				pr.Get("/hazard-types", rt.HazardTypeHandler.GetHazardTypes)
			}

			if rt.HazardHandler != nil {
				h := rt.HazardHandler
				pr.Route("/hazards", func(hr chi.Router) {
					hr.Get("/", h.ListHazards)
					hr.Post("/", h.CreateHazard)
					hr.Get("/dashboard", h.GetDashboard)
					hr.Post("/classify", h.Classify)

					hr.Route("/{id}", func(ir chi.Router) {
						ir.Get("/", h.GetHazard)
						ir.Put("/", h.UpdateHazard)
						ir.Post("/claim", h.ClaimHazard)
						ir.Post("/assign", h.AssignHazard)
						ir.Post("/status", h.ChangeStatus)
						ir.Post("/comments", h.AddComment)
						ir.Get("/logs", h.GetLogs)
					})
				})
			}
		})
	})
}
