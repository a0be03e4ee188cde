// Package events provides the in-process publish/subscribe channel for order
// status changes. Listeners are decoupled from the order service; the bus is
// injected rather than held in package state so tests can substitute a
// capturing instance.
package events

import (
	"log/slog"
	"sync"
	"time"

	"storefront/internal/models"
)

// StatusChanged is emitted after a committed order update actually moved the
// status.
type StatusChanged struct {
	Order          models.Order  `json:"order"`
	PreviousStatus models.Status `json:"previous_status"`
	NewStatus      models.Status `json:"new_status"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// Handler consumes a StatusChanged event.
type Handler func(event StatusChanged)

// Bus delivers StatusChanged events to subscribed handlers, synchronously and
// best-effort. A panicking handler is recovered and logged; it never reaches
// the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

// NewBus creates a Bus logging through the given logger.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a handler for all future events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(event StatusChanged) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, event)
	}
}

func (b *Bus) dispatch(h Handler, event StatusChanged) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("status event handler panicked",
				slog.String("order_id", event.Order.ID),
				slog.Any("panic", r))
		}
	}()
	h(event)
}
