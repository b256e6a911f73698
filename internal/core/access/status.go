package access

import (
	"strings"
	"time"
)

// Status is the workflow state of a hazard. The zero value is StatusUnknown
// and is never a legal target.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusOpen
	StatusInProgress
	StatusResolved
)

const (
	labelOpen       = "Open"
	labelInProgress = "InProgress"
	labelResolved   = "Resolved"
)

// ParseStatus maps a status label onto a Status, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, labelOpen):
		return StatusOpen, true
	case strings.EqualFold(s, labelInProgress):
		return StatusInProgress, true
	case strings.EqualFold(s, labelResolved):
		return StatusResolved, true
	default:
		return StatusUnknown, false
	}
}

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return labelOpen
	case StatusInProgress:
		return labelInProgress
	case StatusResolved:
		return labelResolved
	default:
		return ""
	}
}

func (s Status) IsKnown() bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusResolved
}

// AllStatuses returns the known statuses in workflow order.
func AllStatuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusResolved}
}

// StatusLabels converts statuses to their labels, preserving order.
func StatusLabels(statuses []Status) []string {
	labels := make([]string, 0, len(statuses))
	for _, s := range statuses {
		labels = append(labels, s.String())
	}
	return labels
}

// next returns the single forward step of the ordinary workflow.
func (s Status) next() (Status, bool) {
	switch s {
	case StatusOpen:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusResolved, true
	default:
		return StatusUnknown, false
	}
}

// IsOverdue reports whether a hazard with the given due date is past due on
// the day of now. Resolved hazards and hazards without a due date are never
// overdue. Comparison is by calendar date in now's location.
func IsOverdue(dueDate *time.Time, now time.Time, status Status) bool {
	if dueDate == nil || status == StatusResolved {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dy, dm, dd := dueDate.In(now.Location()).Date()
	due := time.Date(dy, dm, dd, 0, 0, 0, 0, now.Location())
	return due.Before(today)
}
