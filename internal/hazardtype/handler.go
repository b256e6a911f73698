package hazardtype

import (
	"context"
	"net/http"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/transport"
)

type ServiceAPI interface {
	GetActiveTypes(ctx context.Context) ([]HazardTypeResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetHazardTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.GetActiveTypes(r.Context())
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("failed to get hazard types", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, HazardTypesResponse{
		HazardTypes: types,
	})
}
