package repositories

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/apperrors"
	"storefront/internal/models"
)

// MockOrderStore is an in-memory implementation of OrderStore. Stock lives in
// the companion MockProductRepository; a single mutex around each operation
// stands in for the database transaction.
type MockOrderStore struct {
	orders   map[string]models.Order
	products *MockProductRepository
	mu       sync.RWMutex
}

// NewMockOrderStore creates a new instance of MockOrderStore backed by the
// given product repository.
func NewMockOrderStore(products *MockProductRepository) *MockOrderStore {
	return &MockOrderStore{
		orders:   make(map[string]models.Order),
		products: products,
	}
}

// Create stores the order after reserving stock for every item. A failed
// reservation rolls back the ones already taken, so creation is
// all-or-nothing.
func (s *MockOrderStore) Create(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reserved []models.OrderItem
	for _, item := range order.Items {
		if err := s.products.Reserve(item.ProductID, item.Quantity); err != nil {
			for _, taken := range reserved {
				s.products.Release(taken.ProductID, taken.Quantity)
			}
			return err
		}
		reserved = append(reserved, item)
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}
	s.orders[order.ID] = *order
	return nil
}

// GetByID returns an order by its ID.
func (s *MockOrderStore) GetByID(id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order with ID %s not found", id)
	}
	return &order, nil
}

// List returns one page of orders, newest first, trimming one extra fetched
// row into HasMore.
func (s *MockOrderStore) List(opts ListOptions) (*OrderPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var cursorAt time.Time
	var cursorID string
	if opts.Cursor != "" {
		var err error
		cursorAt, cursorID, err = decodeCursor(opts.Cursor)
		if err != nil {
			return nil, apperrors.BadRequest("invalid pagination cursor")
		}
	}

	var matched []models.Order
	for _, order := range s.orders {
		if opts.UserID != "" && order.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && order.Status != opts.Status {
			continue
		}
		if opts.Cursor != "" {
			if order.CreatedAt.After(cursorAt) ||
				(order.CreatedAt.Equal(cursorAt) && order.ID >= cursorID) {
				continue
			}
		}
		matched = append(matched, order)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := &OrderPage{HasMore: len(matched) > limit}
	if page.HasMore {
		matched = matched[:limit]
	}
	page.Orders = matched
	if page.HasMore && len(matched) > 0 {
		last := matched[len(matched)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// Update applies the patch against the stored order, validating the status
// transition against the stored status and releasing inventory at most once.
func (s *MockOrderStore) Update(id string, patch models.OrderPatch) (*models.Order, models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, "", apperrors.NotFound("order with ID %s not found", id)
	}
	previous := order.Status

	if patch.Status != nil && *patch.Status != order.Status {
		if !order.Status.CanTransitionTo(*patch.Status) {
			return nil, "", apperrors.InvalidTransition(order.Status.String(), patch.Status.String())
		}
		order.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		order.PaymentStatus = *patch.PaymentStatus
	}
	if patch.PaymentMethod != nil {
		order.PaymentMethod = *patch.PaymentMethod
	}
	if patch.Tracking != nil {
		order.Tracking = *patch.Tracking
	}
	if patch.Notes != nil {
		order.Notes = *patch.Notes
	}
	if patch.ShippingAddress != nil {
		order.ShippingAddress = *patch.ShippingAddress
	}

	if models.ReleaseInventoryIfNeeded(previous, order.Status, order.InventoryReleased) {
		for _, item := range order.Items {
			s.products.Release(item.ProductID, item.Quantity)
		}
		order.InventoryReleased = true
	}

	order.UpdatedAt = time.Now()
	s.orders[id] = order
	return &order, previous, nil
}

// Delete removes the order, returning any stock it still holds.
func (s *MockOrderStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return apperrors.NotFound("order with ID %s not found", id)
	}
	if !order.InventoryReleased {
		for _, item := range order.Items {
			s.products.Release(item.ProductID, item.Quantity)
		}
	}
	delete(s.orders, id)
	return nil
}

// Stats aggregates over the stored orders, optionally bounded by creation
// time.
func (s *MockOrderStore) Stats(start, end *time.Time) (*models.OrderStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.OrderStats{StatusBreakdown: make(map[models.Status]int64)}
	for _, order := range s.orders {
		if start != nil && order.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && order.CreatedAt.After(*end) {
			continue
		}
		stats.TotalOrders++
		stats.TotalRevenue += order.TotalAmount
		stats.StatusBreakdown[order.Status]++
	}
	stats.PendingOrders = stats.StatusBreakdown[models.StatusPending]
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / float64(stats.TotalOrders)
	}
	return stats, nil
}
