package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
	"github.com/frahmantamala/safety-hazards/internal/core/events"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "events",
	Short: "Event bus commands",
	Long:  `Inspect hazard event types and publish test events through the audit subscriber.`,
}

var listEventsCmd = &cobra.Command{
	Use:   "list",
	Short: "List hazard event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.HazardEventTypes {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type] [hazard-id]",
	Short: "Publish a test hazard event",
	Long:  `Publish a sample hazard event to an in-process bus with the audit logger subscribed, for checking log output.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hazardID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("hazard id must be numeric: %w", err)
		}
		event, err := sampleEvent(args[0], hazardID)
		if err != nil {
			return err
		}
		return publishTestEvent(event)
	},
}

var eventActor int64

func sampleEvent(eventType string, hazardID int64) (events.Event, error) {
	switch eventType {
	case events.EventTypeHazardCreated:
		return events.NewHazardCreatedEvent(hazardID, eventActor, "Medium", "General"), nil
	case events.EventTypeHazardAssigned:
		return events.NewHazardAssignedEvent(hazardID, eventActor, eventActor), nil
	case events.EventTypeHazardStatusChanged:
		return events.NewHazardStatusChangedEvent(hazardID, access.StatusOpen.String(), access.StatusInProgress.String(), eventActor), nil
	case events.EventTypeHazardCommented:
		return events.NewHazardCommentedEvent(hazardID, eventActor), nil
	}
	return nil, fmt.Errorf("unknown event type %q", eventType)
}

func publishTestEvent(event events.Event) error {
	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	events.SubscribeAuditLog(bus, lg)

	lg.Info("publishing test event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := bus.PublishSync(context.Background(), event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventActor, "actor", 1, "User id recorded as the actor")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)
}
