package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

// BaseEvent carries the envelope shared by every hazard event. Data is the
// flat payload written to the audit log.
type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// EventBus fans hazard events out to in-process subscribers. A failing or
// panicking subscriber never affects the publisher or other subscribers.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
	inflight sync.WaitGroup

	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Instrument registers per event type counters for published events and
// failed handlers on reg.
func (eb *EventBus) Instrument(reg prometheus.Registerer) error {
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_events_published_total",
		Help: "Hazard events handed to the event bus.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_event_handler_failures_total",
		Help: "Event handlers that returned an error or panicked.",
	}, []string{"event_type"})

	for _, c := range []prometheus.Collector{published, failed} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register event metrics: %w", err)
		}
	}

	eb.mu.Lock()
	eb.published, eb.failed = published, failed
	eb.mu.Unlock()
	return nil
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

func (eb *EventBus) handlersFor(eventType string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.published != nil {
		eb.published.WithLabelValues(eventType).Inc()
	}
	return eb.handlers[eventType]
}

// Publish runs the handlers for event in the background. Handlers outlive
// the caller's request, so they get a context that is never cancelled.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	detached := context.WithoutCancel(ctx)
	for _, h := range eb.handlersFor(event.EventType()) {
		eb.inflight.Add(1)
		go func(h Handler) {
			defer eb.inflight.Done()
			_ = eb.dispatch(detached, h, event)
		}(h)
	}
	return nil
}

// PublishSync runs handlers in order on the caller's goroutine and stops at
// the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range eb.handlersFor(event.EventType()) {
		if err := eb.dispatch(ctx, h, event); err != nil {
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (eb *EventBus) dispatch(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
		if err != nil {
			eb.logger.ErrorContext(ctx, "event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			eb.mu.RLock()
			if eb.failed != nil {
				eb.failed.WithLabelValues(event.EventType()).Inc()
			}
			eb.mu.RUnlock()
		}
	}()
	return h(ctx, event)
}

var errHandlerPanic = errors.New("event handler panicked")

// Wait blocks until handlers started by Publish have returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}
