package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/frahmantamala/safety-hazards/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		out *bytes.Buffer
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	It("delivers published events to every subscriber", func() {
		var calls atomic.Int32
		for i := 0; i < 3; i++ {
			bus.Subscribe(events.EventTypeHazardCreated, func(context.Context, events.Event) error {
				calls.Add(1)
				return nil
			})
		}

		Expect(bus.Publish(context.Background(), events.NewHazardCreatedEvent(1, 2, "High", "Fire"))).To(Succeed())
		bus.Wait()
		Expect(calls.Load()).To(Equal(int32(3)))
	})

	It("keeps running handlers after the publishing context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		var ctxErr atomic.Value
		bus.Subscribe(events.EventTypeHazardAssigned, func(hctx context.Context, _ events.Event) error {
			ctxErr.Store(errors.Join(hctx.Err()))
			return nil
		})

		cancel()
		Expect(bus.Publish(ctx, events.NewHazardAssignedEvent(1, 7, 3))).To(Succeed())
		bus.Wait()
		Expect(ctxErr.Load()).To(BeNil())
	})

	It("ignores events without subscribers", func() {
		Expect(bus.Publish(context.Background(), events.NewHazardCommentedEvent(1, 2))).To(Succeed())
		Expect(bus.PublishSync(context.Background(), events.NewHazardCommentedEvent(1, 2))).To(Succeed())
	})

	It("returns the first handler error from PublishSync", func() {
		bus.Subscribe(events.EventTypeHazardStatusChanged, func(context.Context, events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewHazardStatusChangedEvent(1, "Open", "InProgress", 7))
		Expect(err).To(MatchError(ContainSubstring("boom")))
		Expect(out.String()).To(ContainSubstring("event handler failed"))
	})

	It("writes hazard events to the audit log", func() {
		audit := &bytes.Buffer{}
		events.SubscribeAuditLog(bus, slog.New(slog.NewTextHandler(audit, nil)))

		Expect(bus.PublishSync(context.Background(), events.NewHazardStatusChangedEvent(9, "Open", "InProgress", 7))).To(Succeed())
		Expect(audit.String()).To(ContainSubstring("event_type=hazard.status_changed"))
	})

	It("survives a panicking handler and counts the failure", func() {
		reg := prometheus.NewRegistry()
		Expect(bus.Instrument(reg)).To(Succeed())

		var after atomic.Bool
		bus.Subscribe(events.EventTypeHazardCreated, func(context.Context, events.Event) error {
			panic("nil map")
		})
		bus.Subscribe(events.EventTypeHazardCreated, func(context.Context, events.Event) error {
			after.Store(true)
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewHazardCreatedEvent(1, 2, "Low", "General"))).To(Succeed())
		bus.Wait()

		Expect(after.Load()).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("event handler panicked"))
		Expect(testutil.CollectAndCount(reg, "hazard_events_published_total")).To(Equal(1))
		Expect(testutil.CollectAndCount(reg, "hazard_event_handler_failures_total")).To(Equal(1))
	})

	It("refuses to register its metrics twice", func() {
		reg := prometheus.NewRegistry()
		Expect(bus.Instrument(reg)).To(Succeed())
		Expect(events.NewEventBus(nil).Instrument(reg)).To(MatchError(ContainSubstring("register event metrics")))
	})
})

