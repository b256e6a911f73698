package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeHazardCreated       = "hazard.created"
	EventTypeHazardAssigned      = "hazard.assigned"
	EventTypeHazardStatusChanged = "hazard.status_changed"
	EventTypeHazardCommented     = "hazard.commented"
)

// HazardEventTypes lists every hazard event type, for subscribers that want all of them.
var HazardEventTypes = []string{
	EventTypeHazardCreated,
	EventTypeHazardAssigned,
	EventTypeHazardStatusChanged,
	EventTypeHazardCommented,
}

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type HazardCreatedEvent struct {
	BaseEvent
	HazardID   int64  `json:"hazard_id"`
	ReportedBy int64  `json:"reported_by"`
	Severity   string `json:"severity"`
	HazardType string `json:"hazard_type"`
}

func NewHazardCreatedEvent(hazardID, reportedBy int64, severity, hazardType string) *HazardCreatedEvent {
	return &HazardCreatedEvent{
		BaseEvent: newBaseEvent(EventTypeHazardCreated, map[string]interface{}{
			"hazard_id":   hazardID,
			"reported_by": reportedBy,
			"severity":    severity,
			"hazard_type": hazardType,
		}),
		HazardID:   hazardID,
		ReportedBy: reportedBy,
		Severity:   severity,
		HazardType: hazardType,
	}
}

type HazardAssignedEvent struct {
	BaseEvent
	HazardID    int64 `json:"hazard_id"`
	AssignedTo  int64 `json:"assigned_to"`
	PerformedBy int64 `json:"performed_by"`
}

func NewHazardAssignedEvent(hazardID, assignedTo, performedBy int64) *HazardAssignedEvent {
	return &HazardAssignedEvent{
		BaseEvent: newBaseEvent(EventTypeHazardAssigned, map[string]interface{}{
			"hazard_id":    hazardID,
			"assigned_to":  assignedTo,
			"performed_by": performedBy,
		}),
		HazardID:    hazardID,
		AssignedTo:  assignedTo,
		PerformedBy: performedBy,
	}
}

type HazardStatusChangedEvent struct {
	BaseEvent
	HazardID    int64  `json:"hazard_id"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	PerformedBy int64  `json:"performed_by"`
}

func NewHazardStatusChangedEvent(hazardID int64, from, to string, performedBy int64) *HazardStatusChangedEvent {
	return &HazardStatusChangedEvent{
		BaseEvent: newBaseEvent(EventTypeHazardStatusChanged, map[string]interface{}{
			"hazard_id":    hazardID,
			"from_status":  from,
			"to_status":    to,
			"performed_by": performedBy,
		}),
		HazardID:    hazardID,
		FromStatus:  from,
		ToStatus:    to,
		PerformedBy: performedBy,
	}
}

type HazardCommentedEvent struct {
	BaseEvent
	HazardID    int64 `json:"hazard_id"`
	PerformedBy int64 `json:"performed_by"`
}

func NewHazardCommentedEvent(hazardID, performedBy int64) *HazardCommentedEvent {
	return &HazardCommentedEvent{
		BaseEvent: newBaseEvent(EventTypeHazardCommented, map[string]interface{}{
			"hazard_id":    hazardID,
			"performed_by": performedBy,
		}),
		HazardID:    hazardID,
		PerformedBy: performedBy,
	}
}
