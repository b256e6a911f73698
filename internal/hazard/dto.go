package hazard

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/core/common/validation"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MinCommentLength     = 3
	MaxCommentLength     = 2000
)

type CreateHazardDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
	HazardType  string `json:"hazard_type,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// UpdateHazardDTO replaces the editable details. An empty due date clears it.
type UpdateHazardDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	HazardType  string `json:"hazard_type"`
	DueDate     string `json:"due_date,omitempty"`
}

type AssignHazardDTO struct {
	AssigneeID int64 `json:"assignee_id"`
}

type ChangeStatusDTO struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type CommentDTO struct {
	Comment string `json:"comment"`
}

type ClassifyDTO struct {
	Description string `json:"description"`
}

// details is the validated form of the editable hazard fields.
type details struct {
	title       string
	description string
	severity    Severity
	hazardType  string
	dueDate     *time.Time
}

func (dto CreateHazardDTO) parse() (details, error) {
	return parseDetails(dto.Title, dto.Description, dto.Severity, dto.HazardType, dto.DueDate, false)
}

func (dto CreateHazardDTO) Validate() error {
	_, err := dto.parse()
	return err
}

func (dto UpdateHazardDTO) parse() (details, error) {
	return parseDetails(dto.Title, dto.Description, dto.Severity, dto.HazardType, dto.DueDate, true)
}

func (dto UpdateHazardDTO) Validate() error {
	_, err := dto.parse()
	return err
}

func parseDetails(title, description, severity, hazardType, dueDate string, classified bool) (details, error) {
	d := details{
		title:       strings.TrimSpace(title),
		description: strings.TrimSpace(description),
		hazardType:  strings.TrimSpace(hazardType),
	}
	severity = strings.TrimSpace(severity)
	dueDate = strings.TrimSpace(dueDate)

	v := validation.NewValidator()
	v.Field("title", d.title).
		Required(internal.ErrCodeInvalidTitle).
		MaxLength(MaxTitleLength, internal.ErrCodeInvalidTitle)
	v.Field("description", d.description).
		Required(internal.ErrCodeInvalidDescription).
		MaxLength(MaxDescriptionLength, internal.ErrCodeInvalidDescription)

	sev := v.Field("severity", severity)
	if classified {
		sev.Required(internal.ErrCodeInvalidSeverity)
	}
	sev.Custom(internal.ErrCodeInvalidSeverity, func(s string) string {
		if _, ok := ParseSeverity(s); s != "" && !ok {
			return "severity must be one of Low, Medium, High, Critical"
		}
		return ""
	})

	if classified {
		v.Field("hazard_type", d.hazardType).Required(internal.ErrCodeInvalidHazardType)
	}
	v.Field("due_date", dueDate).Date(dateLayout, internal.ErrCodeValidationFailed)

	if err := v.Validate(); err != nil {
		return d, err
	}

	if severity != "" {
		d.severity, _ = ParseSeverity(severity)
	}
	if dueDate != "" {
		t, _ := time.Parse(dateLayout, dueDate)
		t = NormalizeDate(t)
		d.dueDate = &t
	}
	return d, nil
}

func (dto AssignHazardDTO) Validate() error {
	if dto.AssigneeID <= 0 {
		return internal.NewValidationFieldError("assignee_id", "assignee is required", internal.ErrCodeInvalidAssignee)
	}
	return nil
}

func (dto ChangeStatusDTO) parse() (access.Status, string, error) {
	status, ok := access.ParseStatus(dto.Status)
	if !ok {
		return access.StatusUnknown, "", ErrInvalidStatus
	}
	note := strings.TrimSpace(dto.Note)
	if utf8.RuneCountInString(note) > MaxCommentLength {
		return access.StatusUnknown, "", internal.NewValidationFieldError("note", "note must be at most 2000 characters", internal.ErrCodeInvalidComment)
	}
	return status, note, nil
}

func (dto ChangeStatusDTO) Validate() error {
	_, _, err := dto.parse()
	return err
}

func (dto CommentDTO) parse() (string, error) {
	comment := strings.TrimSpace(dto.Comment)
	v := validation.NewValidator()
	v.Field("comment", comment).
		MinLength(MinCommentLength, internal.ErrCodeInvalidComment).
		MaxLength(MaxCommentLength, internal.ErrCodeInvalidComment)
	if err := v.Validate(); err != nil {
		return "", err
	}
	return comment, nil
}

func (dto CommentDTO) Validate() error {
	_, err := dto.parse()
	return err
}

// View is a hazard together with what the caller may do with it.
type View struct {
	Hazard      *Hazard
	Permissions access.Decision
	IsOverdue   bool
}

type HazardResponse struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	ReportedBy     int64           `json:"reported_by"`
	ReportedByName string          `json:"reported_by_name,omitempty"`
	AssignedTo     *int64          `json:"assigned_to"`
	AssignedToName string          `json:"assigned_to_name,omitempty"`
	Status         string          `json:"status"`
	Severity       string          `json:"severity"`
	HazardType     string          `json:"hazard_type"`
	DueDate        *string         `json:"due_date"`
	IsOverdue      bool            `json:"is_overdue"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Permissions    access.Decision `json:"permissions"`
}

type HazardsResponse struct {
	Hazards []HazardResponse `json:"hazards"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type LogsResponse struct {
	Logs []*Log `json:"logs"`
}

func (v *View) ToResponse() HazardResponse {
	h := v.Hazard
	var due *string
	if h.DueDate != nil {
		s := h.DueDate.Format(dateLayout)
		due = &s
	}
	return HazardResponse{
		ID:             h.ID,
		Title:          h.Title,
		Description:    h.Description,
		ReportedBy:     h.ReportedBy,
		ReportedByName: h.ReportedByName,
		AssignedTo:     h.AssignedTo,
		AssignedToName: h.AssignedToName,
		Status:         h.Status.String(),
		Severity:       string(h.Severity),
		HazardType:     h.HazardType,
		DueDate:        due,
		IsOverdue:      v.IsOverdue,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
		Permissions:    v.Permissions,
	}
}
