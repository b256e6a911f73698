package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

// statusByType maps each error type to the HTTP status it is served with.
var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeRateLimited:  http.StatusTooManyRequests,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTitle       ErrorCode = "INVALID_TITLE"
	ErrCodeInvalidDescription ErrorCode = "INVALID_DESCRIPTION"
	ErrCodeInvalidSeverity    ErrorCode = "INVALID_SEVERITY"
	ErrCodeInvalidHazardType  ErrorCode = "INVALID_HAZARD_TYPE"
	ErrCodeInvalidComment     ErrorCode = "INVALID_COMMENT"
	ErrCodeInvalidAssignee    ErrorCode = "INVALID_ASSIGNEE"

	ErrCodeHazardNotFound ErrorCode = "HAZARD_NOT_FOUND"
	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeAccessDenied   ErrorCode = "ACCESS_DENIED"
	ErrCodeInvalidStatus  ErrorCode = "INVALID_STATUS"
	ErrCodeHazardConflict ErrorCode = "HAZARD_CONFLICT"

	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTooManyAttempts    ErrorCode = "TOO_MANY_ATTEMPTS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is an error that knows how it is rendered to API clients. Cause
// is logged but never serialized.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusByType[t]}
}

// Error returns the first field message for validation errors so callers
// logging err see which input was rejected.
func (e *AppError) Error() string {
	if fields := e.FieldErrors(); len(fields) > 0 {
		return fields[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same type and code, so a copy made by
// WithCause or WithDetails still matches its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy of e wrapping cause. Sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of e carrying details.
func (e *AppError) WithDetails(details interface{}) *AppError {
	c := *e
	c.Details = details
	return &c
}

// FieldErrors returns the per-field failures of a validation error.
func (e *AppError) FieldErrors() []ValidationError {
	if v, ok := e.Details.(ValidationErrors); ok {
		return v.Errors
	}
	return nil
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

// NewValidationFieldError reports a single rejected field.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{
			Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}},
		})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, message)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, code, message)
}

func NewTooManyRequestsError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeRateLimited, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, ErrCodeInternal, message).WithCause(cause)
}

var (
	ErrHazardNotFound = NewNotFoundError("Hazard not found", ErrCodeHazardNotFound)
	ErrUserNotFound   = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrAccessDenied   = NewForbiddenError("Access denied", ErrCodeAccessDenied)
	ErrInvalidStatus  = NewValidationError("Invalid hazard status", ErrCodeInvalidStatus)
	ErrHazardConflict = NewConflictError("Hazard was changed by another user, reload and try again", ErrCodeHazardConflict)

	ErrUnauthenticated    = NewUnauthorizedError("Authentication required", ErrCodeUnauthenticated)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid username or password", ErrCodeInvalidCredentials)
	ErrTooManyAttempts    = NewTooManyRequestsError("Too many login attempts, try again later", ErrCodeTooManyAttempts)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Response is the envelope every API error is served in.
type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(wire{Type: e.Type, Code: e.Code, Message: e.Message, Details: e.Details})
}
