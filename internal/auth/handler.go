package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/transport"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
)

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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.WriteAppError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return false
	}
	return true
}

// Login exchanges credentials for tokens. Unknown users, inactive users and
// wrong passwords get the same response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.decode(w, r, &dto) {
		return
	}

	tokens, err := h.Service.Login(r.Context(), dto, r.RemoteAddr)
	if err != nil {
		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(throttled)))
			err = ErrTooManyAttempts
		}
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func retryAfterSeconds(e *ThrottledError) int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if !h.decode(w, r, &dto) {
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrUserNotFound) {
			err = ErrInvalidToken
		}
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout checks the access token. Tokens are stateless, so the client
// discards them.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.WriteAppError(w, ErrInvalidToken)
		return
	}

	if _, err := h.Service.ValidateAccessToken(token); err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token into a Principal on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, ErrInvalidToken)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		principal, err := h.Service.PrincipalFromClaims(r.Context(), claims)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidToken) {
				h.WriteAppError(w, ErrInvalidToken)
				return
			}
			h.Logger.Error("auth middleware: failed to load principal", "user_id", claims.UserID, "error", err)
			h.WriteAppError(w, err)
			return
		}

		ctx := ContextWithUser(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
