package hazard

import (
	"strings"
	"time"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
	hazardDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/hazard"
)

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// AllSeverities lists severities from least to most urgent.
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// ParseSeverity matches a severity label case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	s = strings.TrimSpace(s)
	for _, sev := range AllSeverities() {
		if strings.EqualFold(s, string(sev)) {
			return sev, true
		}
	}
	return "", false
}

// Log action types.
const (
	ActionCreated       = "Created"
	ActionUpdated       = "Updated"
	ActionAssigned      = "Assigned"
	ActionStatusChanged = "StatusChanged"
	ActionComment       = "Comment"
)

const dateLayout = "2006-01-02"

type Hazard struct {
	ID             int64
	Title          string
	Description    string
	ReportedBy     int64
	ReportedByName string
	AssignedTo     *int64
	AssignedToName string
	Status         access.Status
	Severity       Severity
	HazardType     string
	DueDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot is the view of h the access policy decides on.
func (h *Hazard) Snapshot() *access.HazardSnapshot {
	return &access.HazardSnapshot{
		ReportedBy: h.ReportedBy,
		AssignedTo: access.AssigneeFromPtr(h.AssignedTo),
		Status:     h.Status,
	}
}

func (h *Hazard) IsOverdue(now time.Time) bool {
	return access.IsOverdue(h.DueDate, now, h.Status)
}

type Log struct {
	ID              int64     `json:"id"`
	HazardID        int64     `json:"hazard_id"`
	ActionType      string    `json:"action_type"`
	Details         string    `json:"details,omitempty"`
	PerformedBy     int64     `json:"performed_by"`
	PerformedByName string    `json:"performed_by_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Actor is the authenticated caller of a hazard operation.
type Actor struct {
	UserID int64
	Role   access.Role
}

// Scope restricts repository reads to what the actor may see.
type Scope struct {
	Role   access.Role
	UserID int64
}

func (a Actor) Scope() Scope {
	return Scope{Role: a.Role, UserID: a.UserID}
}

// Filter narrows a hazard listing. Zero values mean "any".
type Filter struct {
	Search      string
	Status      access.Status
	Severity    Severity
	HazardType  string
	AssignedTo  *int64
	OverdueOnly bool
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type DashboardMetrics struct {
	OpenCount        int64            `json:"open_count"`
	InProgressCount  int64            `json:"in_progress_count"`
	ResolvedCount    int64            `json:"resolved_count"`
	OverdueOpenCount int64            `json:"overdue_open_count"`
	BySeverity       map[string]int64 `json:"by_severity"`
	ByType           map[string]int64 `json:"by_type"`
}

func NewDashboardMetrics() *DashboardMetrics {
	return &DashboardMetrics{
		BySeverity: map[string]int64{},
		ByType:     map[string]int64{},
	}
}

// NormalizeDate drops the time of day, keeping the calendar date in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ToDataModel(h *Hazard) *hazardDatamodel.Hazard {
	return &hazardDatamodel.Hazard{
		ID:          h.ID,
		Title:       h.Title,
		Description: h.Description,
		ReportedBy:  h.ReportedBy,
		AssignedTo:  h.AssignedTo,
		Status:      h.Status.String(),
		Severity:    string(h.Severity),
		HazardType:  h.HazardType,
		DueDate:     h.DueDate,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

// FromDataModel converts a stored row. An unrecognised status becomes
// StatusUnknown, which no policy rule accepts.
func FromDataModel(h *hazardDatamodel.Hazard) *Hazard {
	status, _ := access.ParseStatus(h.Status)
	return &Hazard{
		ID:          h.ID,
		Title:       h.Title,
		Description: h.Description,
		ReportedBy:  h.ReportedBy,
		AssignedTo:  h.AssignedTo,
		Status:      status,
		Severity:    Severity(h.Severity),
		HazardType:  h.HazardType,
		DueDate:     h.DueDate,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}
