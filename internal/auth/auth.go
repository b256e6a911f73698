package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/golang-jwt/jwt/v5"
)

// UserAuth is a user row together with its stored password credential.
type UserAuth struct {
	UserID     int64
	Username   string
	FullName   string
	Role       string
	IsActive   bool
	Credential PasswordCredential
}

// hasCredential reports whether the stored credential material is usable.
func (u *UserAuth) hasCredential() bool {
	c := u.Credential
	return len(c.Salt) > 0 && len(c.Hash) > 0 && c.Iterations > 0
}

// Principal is the authenticated caller as seen by handlers and services.
// Role has already been parsed; an unrecognised stored role is RoleNone.
type Principal struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Role     access.Role `json:"-"`
}

func (p *Principal) RoleLabel() string {
	return p.Role.String()
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims represents JWT token claims
type Claims struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Kind     TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Credential and token failures share the HTTP error taxonomy so handlers
// can write them directly.
var (
	ErrInvalidCredentials = internal.ErrInvalidCredentials
	ErrInvalidToken       = internal.ErrInvalidToken
	ErrTokenExpired       = internal.ErrTokenExpired
	ErrTooManyAttempts    = internal.ErrTooManyAttempts

	ErrUserNotFound = errors.New("user not found")
)

// ThrottledError is returned for logins rejected by the throttle.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrTooManyAttempts, e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// Unwrap exposes the TOO_MANY_ATTEMPTS AppError to errors.As.
func (e *ThrottledError) Unwrap() error {
	return ErrTooManyAttempts
}

type ctxKey string

const ContextUserKey ctxKey = "principal"

func UserFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ContextUserKey).(*Principal)
	return p, ok && p != nil
}

func ContextWithUser(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextUserKey, p)
}
