package auth

import (
	"strings"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshTokenDTO for refresh token requests
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate checks required fields. The password is not trimmed.
func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", strings.TrimSpace(d.Username)).
		Required(internal.ErrCodeValidationFailed).
		MaxLength(100, internal.ErrCodeValidationFailed)
	v.Field("password", d.Password).
		Required(internal.ErrCodeValidationFailed).
		MaxLength(1024, internal.ErrCodeValidationFailed)
	return v.Validate()
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", strings.TrimSpace(d.RefreshToken)).Required(internal.ErrCodeInvalidToken)
	return v.Validate()
}
