// Package notifications dispatches order status updates to the customer.
// Delivery is best-effort: the order service logs failures and moves on, so a
// broken mail pipeline can never fail an order operation.
package notifications

import (
	"encoding/json"
	"fmt"

	"storefront/internal/models"
	"storefront/pkg/rabbitmq"
)

// StatusUpdate is the payload handed to the mail worker.
type StatusUpdate struct {
	To             string        `json:"to"`
	OrderID        string        `json:"order_id"`
	PreviousStatus models.Status `json:"previous_status"`
	NewStatus      models.Status `json:"new_status"`
}

// Notifier sends order status updates.
type Notifier interface {
	SendOrderStatusUpdate(update StatusUpdate) error
}

// AMQPNotifier publishes status updates to the notification queue, where the
// external mail worker picks them up.
type AMQPNotifier struct {
	client *rabbitmq.Client
}

// NewAMQPNotifier creates an AMQPNotifier over an established client.
func NewAMQPNotifier(client *rabbitmq.Client) *AMQPNotifier {
	return &AMQPNotifier{client: client}
}

// SendOrderStatusUpdate publishes the update as JSON.
func (n *AMQPNotifier) SendOrderStatusUpdate(update StatusUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}
	if err := n.client.Publish(body); err != nil {
		return fmt.Errorf("failed to publish status update for order %s: %w", update.OrderID, err)
	}
	return nil
}

// NoopNotifier drops every update. Used when notifications are disabled or
// the broker is unavailable at startup.
type NoopNotifier struct{}

// SendOrderStatusUpdate discards the update.
func (NoopNotifier) SendOrderStatusUpdate(StatusUpdate) error { return nil }
