package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/transport"
)

// RoleAuthorization gates routes on the caller's role. Record-level rules
// stay in access.Policy; this only rejects roles that can never succeed.
type RoleAuthorization struct {
	logger *slog.Logger
}

func NewRoleAuthorization(logger *slog.Logger) *RoleAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleAuthorization{logger: logger}
}

func (ra *RoleAuthorization) Check(next http.HandlerFunc, roles ...access.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			ra.logger.Warn("authorization check failed: user not found in context")
			transport.WriteAppError(w, internal.ErrUnauthenticated)
			return
		}

		for _, role := range roles {
			if role.IsKnown() && user.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}

		ra.logger.WarnContext(r.Context(), "access denied: role not permitted",
			"user_id", user.ID,
			"role", user.RoleLabel())
		transport.WriteAppError(w, internal.ErrAccessDenied)
	}
}

// RequireRole allows the request through when the caller has one of roles.
func (ra *RoleAuthorization) RequireRole(roles ...access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, roles...)
	}
}

// RequireAuthenticatedRole rejects principals whose stored role is not recognised.
func (ra *RoleAuthorization) RequireAuthenticatedRole() func(http.Handler) http.Handler {
	return ra.RequireRole(access.AllRoles()...)
}
