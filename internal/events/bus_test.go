package events_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storefront/internal/events"
	"storefront/internal/models"
)

func newTestBus() *events.Bus {
	return events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBus_PublishDeliversToAllSubscribers(t *testing.T) {
	bus := newTestBus()

	var first, second []events.StatusChanged
	bus.Subscribe(func(e events.StatusChanged) { first = append(first, e) })
	bus.Subscribe(func(e events.StatusChanged) { second = append(second, e) })

	event := events.StatusChanged{
		Order:          models.Order{ID: "order-1"},
		PreviousStatus: models.StatusPending,
		NewStatus:      models.StatusConfirmed,
		OccurredAt:     time.Now(),
	}
	bus.Publish(event)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.Equal(t, "order-1", first[0].Order.ID)
	assert.Equal(t, models.StatusPending, first[0].PreviousStatus)
	assert.Equal(t, models.StatusConfirmed, first[0].NewStatus)
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := newTestBus()

	bus.Subscribe(func(events.StatusChanged) { panic("listener bug") })

	var delivered int
	bus.Subscribe(func(events.StatusChanged) { delivered++ })

	assert.NotPanics(t, func() {
		bus.Publish(events.StatusChanged{Order: models.Order{ID: "order-2"}})
	})
	assert.Equal(t, 1, delivered)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := newTestBus()
	assert.NotPanics(t, func() {
		bus.Publish(events.StatusChanged{Order: models.Order{ID: "order-3"}})
	})
}
