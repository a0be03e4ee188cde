package services

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront/internal/apperrors"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
)

// nonAdminMutableFields is the allow-list for order edits by the owning user:
// free-text notes and the shipping address, and only while the order is still
// pending. Everything else is admin territory.
var nonAdminMutableFields = map[string]bool{
	"notes":            true,
	"shipping_address": true,
}

// OrderItemInput is one requested line item.
type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput is the order creation request.
type CreateOrderInput struct {
	Items           []OrderItemInput       `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   models.PaymentMethod   `json:"payment_method"`
	Notes           string                 `json:"notes"`
}

// OrderService handles business logic related to orders: validation,
// authorization, pricing, the status lifecycle and its side effects.
type OrderService struct {
	orders   repositories.OrderStore
	products repositories.ProductRepository
	notifier notifications.Notifier
	bus      *events.Bus
	pricing  config.Pricing
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orders repositories.OrderStore,
	products repositories.ProductRepository,
	notifier notifications.Notifier,
	bus *events.Bus,
	pricing config.Pricing,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		notifier: notifier,
		bus:      bus,
		pricing:  pricing,
		validate: validator.New(),
		logger:   logger,
	}
}

// CreateOrder validates the request, snapshots product data, computes pricing
// and persists the order. Stock for every item is reserved atomically with the
// order itself; a short item aborts the whole creation.
func (s *OrderService) CreateOrder(input CreateOrderInput, userID, userEmail string) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.BadRequest("order must contain at least one item")
	}
	if err := s.validateShippingAddress(input.ShippingAddress); err != nil {
		return nil, err
	}

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentMethodCard
	}
	if !paymentMethod.IsValid() {
		return nil, apperrors.BadRequest("invalid payment method: %s", paymentMethod)
	}

	var subtotal float64
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, apperrors.BadRequest("quantity for product %s must be a positive integer", in.ProductID)
		}
		product, err := s.products.GetByID(in.ProductID)
		if err != nil {
			return nil, err
		}
		lineTotal := roundCents(product.Price * float64(in.Quantity))
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
			UnitPrice:    product.Price,
			Quantity:     in.Quantity,
			LineTotal:    lineTotal,
		})
		subtotal += lineTotal
	}
	subtotal = roundCents(subtotal)

	tax := roundCents(subtotal * s.pricing.TaxRate)
	shipping := s.pricing.FlatShippingFee
	if subtotal > s.pricing.FreeShippingThreshold {
		shipping = 0
	}

	order := &models.Order{
		UserID:          userID,
		UserEmail:       userEmail,
		Items:           items,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		ShippingCost:    shipping,
		TotalAmount:     roundCents(subtotal + tax + shipping),
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
	}

	if err := s.orders.Create(order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Float64("total", order.TotalAmount))
	return order, nil
}

// GetOrder retrieves an order. Non-admins may only read their own.
func (s *OrderService) GetOrder(id string, actor models.Actor) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.ID {
		return nil, apperrors.Forbidden("you do not have access to this order")
	}
	return order, nil
}

// GetUserOrders lists one user's orders, newest first.
func (s *OrderService) GetUserOrders(userID string, limit int, cursor string, status models.Status) (*repositories.OrderPage, error) {
	if status != "" && !status.IsValid() {
		return nil, apperrors.BadRequest("invalid order status: %s", status)
	}
	return s.orders.List(repositories.ListOptions{
		UserID: userID,
		Status: status,
		Limit:  limit,
		Cursor: cursor,
	})
}

// GetAllOrders lists every order, newest first.
func (s *OrderService) GetAllOrders(limit int, cursor string, status models.Status) (*repositories.OrderPage, error) {
	if status != "" && !status.IsValid() {
		return nil, apperrors.BadRequest("invalid order status: %s", status)
	}
	return s.orders.List(repositories.ListOptions{
		Status: status,
		Limit:  limit,
		Cursor: cursor,
	})
}

// UpdateOrder applies a partial update. Admins may set any field subject to
// the status transition table; owners may edit notes and the shipping address
// while the order is still pending. Side effects fire only when the committed
// update actually moved the status.
func (s *OrderService) UpdateOrder(id string, patch models.OrderPatch, actor models.Actor) (*models.Order, error) {
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, apperrors.BadRequest("invalid order status: %s", *patch.Status)
	}
	if patch.PaymentStatus != nil && !patch.PaymentStatus.IsValid() {
		return nil, apperrors.BadRequest("invalid payment status: %s", *patch.PaymentStatus)
	}
	if patch.PaymentMethod != nil && !patch.PaymentMethod.IsValid() {
		return nil, apperrors.BadRequest("invalid payment method: %s", *patch.PaymentMethod)
	}
	if patch.ShippingAddress != nil {
		if err := s.validateShippingAddress(*patch.ShippingAddress); err != nil {
			return nil, err
		}
	}

	if !actor.IsAdmin() {
		order, err := s.orders.GetByID(id)
		if err != nil {
			return nil, err
		}
		if order.UserID != actor.ID {
			return nil, apperrors.Forbidden("you can only update your own orders")
		}
		if order.Status != models.StatusPending {
			return nil, apperrors.Forbidden("orders can only be edited while pending")
		}
		var restricted []string
		for _, field := range patch.ChangedFields() {
			if !nonAdminMutableFields[field] {
				restricted = append(restricted, field)
			}
		}
		if len(restricted) > 0 {
			return nil, apperrors.ForbiddenFields(restricted)
		}
	}

	updated, previous, err := s.orders.Update(id, patch)
	if err != nil {
		return nil, err
	}
	if previous != updated.Status {
		s.dispatchStatusChange(updated, previous)
	}
	return updated, nil
}

// CancelOrder cancels a pending or confirmed order on behalf of its owner or
// an admin. Cancellation releases reserved stock and fires the usual status
// side effects.
func (s *OrderService) CancelOrder(id string, actor models.Actor) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.UserID != actor.ID {
		return nil, apperrors.Forbidden("you can only cancel your own orders")
	}
	if order.Status != models.StatusPending && order.Status != models.StatusConfirmed {
		return nil, apperrors.BadRequest("order in status %s cannot be cancelled", order.Status)
	}

	cancelled := models.StatusCancelled
	updated, previous, err := s.orders.Update(id, models.OrderPatch{Status: &cancelled})
	if err != nil {
		return nil, err
	}
	if previous != updated.Status {
		s.dispatchStatusChange(updated, previous)
	}
	return updated, nil
}

// DeleteOrder removes an order entirely. Admin only; stock the order still
// holds goes back to the catalog.
func (s *OrderService) DeleteOrder(id string, actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("only admins can delete orders")
	}
	return s.orders.Delete(id)
}

// GetOrderStats aggregates order counts and revenue, optionally bounded to a
// creation-time window.
func (s *OrderService) GetOrderStats(start, end *time.Time) (*models.OrderStats, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, apperrors.BadRequest("start date must not be after end date")
	}
	return s.orders.Stats(start, end)
}

// dispatchStatusChange runs the post-commit side effects of a status move:
// best-effort customer notification and an event for in-process listeners.
// Neither can fail the operation that triggered them.
func (s *OrderService) dispatchStatusChange(order *models.Order, previous models.Status) {
	err := s.notifier.SendOrderStatusUpdate(notifications.StatusUpdate{
		To:             order.UserEmail,
		OrderID:        order.ID,
		PreviousStatus: previous,
		NewStatus:      order.Status,
	})
	if err != nil {
		s.logger.Warn("failed to send order status notification",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
	}

	s.bus.Publish(events.StatusChanged{
		Order:          *order,
		PreviousStatus: previous,
		NewStatus:      order.Status,
		OccurredAt:     time.Now(),
	})
}

// validateShippingAddress checks that all six required address fields are
// present, naming the missing ones.
func (s *OrderService) validateShippingAddress(addr models.ShippingAddress) error {
	if err := s.validate.Struct(addr); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return apperrors.BadRequest("incomplete shipping address: %s required", strings.Join(missing, ", "))
		}
		return apperrors.BadRequest("invalid shipping address")
	}
	return nil
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
