package events

import (
	"context"
	"log/slog"
)

// SubscribeAuditLog writes every hazard event to logger.
func SubscribeAuditLog(bus *EventBus, logger *slog.Logger) {
	for _, eventType := range HazardEventTypes {
		bus.Subscribe(eventType, func(ctx context.Context, event Event) error {
			logger.InfoContext(ctx, "hazard event",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"occurred_at", event.OccurredAt(),
				"payload", event.Payload())
			return nil
		})
	}
}
