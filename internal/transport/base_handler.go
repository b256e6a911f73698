package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
)

// BaseHandler carries what every resource handler shares: the logger and
// the JSON and error writers.
type BaseHandler struct {
	Logger *slog.Logger
}

func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.FromOr(context.Background(), nil)
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes data as a JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteAppError renders err in the API error envelope. Anything that is not
// an AppError becomes a generic 500; the cause is never serialized.
func WriteAppError(w http.ResponseWriter, err error) *internal.AppError {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		appErr = internal.NewInternalError("Internal server error", err)
	}
	status, body := appErr.ToHTTPResponse()
	_ = WriteJSON(w, status, body)
	return appErr
}

func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := WriteJSON(w, status, data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError writes err and logs it: server faults at error level with
// the cause, client faults at warn level by code only.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error) {
	appErr := WriteAppError(w, err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", appErr.StatusCode, "code", appErr.Code, "error", err)
		return
	}
	h.Logger.Warn("http error", "status", appErr.StatusCode, "code", appErr.Code)
}

// ExtractTokenFromHeader returns the bearer token, or "" when the header is
// missing or uses another scheme.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	const prefix = "bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
