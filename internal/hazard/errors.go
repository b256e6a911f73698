package hazard

import "github.com/frahmantamala/safety-hazards/internal"

var (
	ErrHazardNotFound  = internal.ErrHazardNotFound
	ErrForbidden       = internal.ErrAccessDenied
	ErrInvalidStatus   = internal.ErrInvalidStatus
	ErrHazardConflict  = internal.ErrHazardConflict
	ErrInvalidAssignee = internal.NewValidationError("Assignee must be an active site manager", internal.ErrCodeInvalidAssignee)
	ErrInvalidType     = internal.NewValidationError("Unknown hazard type", internal.ErrCodeInvalidHazardType)
)
