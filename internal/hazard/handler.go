package hazard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/transport"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor Actor, dto CreateHazardDTO) (*View, error)
	List(ctx context.Context, actor Actor, filter Filter) ([]*View, error)
	Get(ctx context.Context, actor Actor, id int64) (*View, error)
	UpdateDetails(ctx context.Context, actor Actor, id int64, dto UpdateHazardDTO) (*View, error)
	SelfAssign(ctx context.Context, actor Actor, id int64) (*View, error)
	AssignTo(ctx context.Context, actor Actor, id int64, dto AssignHazardDTO) (*View, error)
	ChangeStatus(ctx context.Context, actor Actor, id int64, dto ChangeStatusDTO) (*View, error)
	AddComment(ctx context.Context, actor Actor, id int64, dto CommentDTO) (*Log, error)
	Logs(ctx context.Context, actor Actor, id int64) ([]*Log, error)
	Dashboard(ctx context.Context, actor Actor) (*DashboardMetrics, error)
	Classify(description string) Classification
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok || principal == nil {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return Actor{}, false
	}
	return Actor{UserID: principal.ID, Role: principal.Role}, true
}

func (h *Handler) hazardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.WriteAppError(w, internal.NewValidationFieldError("id", "hazard id must be a positive integer", internal.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Warn("invalid request body", "error", err, "path", r.URL.Path)
		h.WriteAppError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return false
	}
	return true
}

func (h *Handler) CreateHazard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateHazardDTO
	if !h.decode(w, r, &dto) {
		return
	}

	view, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, view.ToResponse())
}

func (h *Handler) ListHazards(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	views, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp := HazardsResponse{
		Hazards: make([]HazardResponse, 0, len(views)),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	for _, v := range views {
		resp.Hazards = append(resp.Hazards, v.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetHazard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	view, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view.ToResponse())
}

func (h *Handler) UpdateHazard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	var dto UpdateHazardDTO
	if !h.decode(w, r, &dto) {
		return
	}

	view, err := h.Service.UpdateDetails(r.Context(), actor, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view.ToResponse())
}

// ClaimHazard assigns the hazard to the calling site manager.
func (h *Handler) ClaimHazard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	view, err := h.Service.SelfAssign(r.Context(), actor, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view.ToResponse())
}

func (h *Handler) AssignHazard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	var dto AssignHazardDTO
	if !h.decode(w, r, &dto) {
		return
	}

	view, err := h.Service.AssignTo(r.Context(), actor, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view.ToResponse())
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	var dto ChangeStatusDTO
	if !h.decode(w, r, &dto) {
		return
	}

	view, err := h.Service.ChangeStatus(r.Context(), actor, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, view.ToResponse())
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	var dto CommentDTO
	if !h.decode(w, r, &dto) {
		return
	}

	entry, err := h.Service.AddComment(r.Context(), actor, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.hazardID(w, r)
	if !ok {
		return
	}

	logs, err := h.Service.Logs(r.Context(), actor, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, LogsResponse{Logs: logs})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	metrics, err := h.Service.Dashboard(r.Context(), actor)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, metrics)
}

// Classify suggests a severity and type for a draft description.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	var dto ClassifyDTO
	if !h.decode(w, r, &dto) {
		return
	}
	h.WriteJSON(w, http.StatusOK, h.Service.Classify(dto.Description))
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Search:      strings.TrimSpace(q.Get("q")),
		HazardType:  strings.TrimSpace(q.Get("hazard_type")),
		OverdueOnly: q.Get("overdue") == "true" || q.Get("overdue") == "1",
		Limit:       DefaultListLimit,
	}

	if s := q.Get("status"); s != "" {
		status, ok := access.ParseStatus(s)
		if !ok {
			return f, ErrInvalidStatus
		}
		f.Status = status
	}

	if s := q.Get("severity"); s != "" {
		sev, ok := ParseSeverity(s)
		if !ok {
			return f, internal.NewValidationFieldError("severity", "severity must be one of Low, Medium, High, Critical", internal.ErrCodeInvalidSeverity)
		}
		f.Severity = sev
	}

	if s := q.Get("assigned_to"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return f, internal.NewValidationFieldError("assigned_to", "assigned_to must be a user id", internal.ErrCodeValidationFailed)
		}
		f.AssignedTo = &id
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, internal.NewValidationFieldError(p.name, p.name+" must be formatted as YYYY-MM-DD", internal.ErrCodeValidationFailed)
		}
		*p.dst = &t
	}

	if s := q.Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= MaxListLimit {
			f.Limit = l
		}
	}
	if s := q.Get("offset"); s != "" {
		if o, err := strconv.Atoi(s); err == nil && o >= 0 {
			f.Offset = o
		}
	}

	return f, nil
}
