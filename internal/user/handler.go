package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/auth"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/transport"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	ListActiveByRole(ctx context.Context, role access.Role) ([]*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	u, err := h.Service.GetByID(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = internal.ErrUserNotFound
		}
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u.ToResponse())
}

// ListUsers handles GET /users?role=SiteManager
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role, ok := access.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		h.WriteAppError(w, internal.NewValidationFieldError("role", "role must be one of FieldWorker, SiteManager, SafetyOfficer", internal.ErrCodeValidationFailed))
		return
	}

	users, err := h.Service.ListActiveByRole(r.Context(), role)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("failed to list users", err))
		return
	}

	resp := UsersResponse{Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, u.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
