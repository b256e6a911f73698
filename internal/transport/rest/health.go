package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/frahmantamala/safety-hazards/internal"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CheckFunc probes one dependency. The returned message is shown to
// callers, so it must not carry driver errors.
type CheckFunc func(ctx context.Context) (details map[string]any, message string, ok bool)

type HealthHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

func NewHealthHandler(db Pinger) *HealthHandler {
	h := &HealthHandler{checks: map[string]CheckFunc{}, timeout: 2 * time.Second}
	h.AddCheck("postgres", databaseCheck(db))
	return h
}

// AddCheck adds or replaces the readiness check called name.
func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

func databaseCheck(db Pinger) CheckFunc {
	return func(ctx context.Context) (map[string]any, string, bool) {
		if db == nil {
			return nil, "database not configured", false
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, "database unreachable", false
		}
		s, ok := db.(interface{ Stats() sql.DBStats })
		if !ok {
			return nil, "", true
		}
		stats := s.Stats()
		return map[string]any{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		}, "", true
	}
}

// pingHandler reports liveness only.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler reports readiness. Any failing check makes the whole
// service unhealthy.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: HealthHealthy, Components: make(map[string]CheckEntry, len(names))}
	for _, name := range names {
		start := time.Now()
		details, msg, ok := h.checks[name](ctx)
		entry := CheckEntry{
			Status:     HealthHealthy,
			Message:    msg,
			Details:    details,
			CheckedAt:  time.Now().UTC(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if !ok {
			entry.Status = HealthUnhealthy
			resp.Status = HealthUnhealthy
		}
		resp.Components[name] = entry
	}
	resp.CheckedAt = time.Now().UTC()

	statusCode := http.StatusOK
	if resp.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
