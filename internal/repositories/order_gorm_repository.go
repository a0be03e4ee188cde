package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/apperrors"
	"storefront/internal/models"
)

// txMaxAttempts bounds the internal retry on conflicting concurrent
// transactions before the failure is surfaced.
const txMaxAttempts = 3

// GORMOrderStore is a GORM implementation of OrderStore. All mutating
// operations run inside serializable transactions; mutual exclusion is
// delegated entirely to the database.
type GORMOrderStore struct {
	db        *gorm.DB
	inventory *GORMInventoryStore
}

// NewGORMOrderStore creates a new instance of GORMOrderStore.
func NewGORMOrderStore(db *gorm.DB, inventory *GORMInventoryStore) *GORMOrderStore {
	return &GORMOrderStore{
		db:        db,
		inventory: inventory,
	}
}

// serializableTx runs fn in a serializable transaction, retrying a bounded
// number of times when the database aborts it for a conflicting concurrent
// write.
func (s *GORMOrderStore) serializableTx(fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = s.db.Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil || !isRetryableTxError(err) {
			return err
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", txMaxAttempts, err)
}

// isRetryableTxError reports whether err is transient store contention
// (serialization abort, deadlock, sqlite busy) rather than a real failure.
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Create persists the order and its items and decrements each item's stock in
// one transaction. Any missing product or short stock rolls the whole thing
// back, so no partial decrement can survive a failed creation.
func (s *GORMOrderStore) Create(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
	}

	return s.serializableTx(func(tx *gorm.DB) error {
		inv := s.inventory.WithTx(tx)
		for _, item := range order.Items {
			if err := inv.Reserve(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a single order with its items.
func (s *GORMOrderStore) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("order with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// List returns one page of orders, newest first. It fetches one row beyond
// the limit to decide HasMore, then trims it off.
func (s *GORMOrderStore) List(opts ListOptions) (*OrderPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	q := s.db.Model(&models.Order{}).Preload("Items")
	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.Cursor != "" {
		createdAt, id, err := decodeCursor(opts.Cursor)
		if err != nil {
			return nil, apperrors.BadRequest("invalid pagination cursor")
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	page := &OrderPage{HasMore: len(orders) > limit}
	if page.HasMore {
		orders = orders[:limit]
	}
	page.Orders = orders
	if page.HasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// Update applies the patch in one transaction. The current row is read first;
// the status transition is checked against that stored status, and when the
// move enters a releasing status for the first time every item's stock goes
// back to the catalog in the same transaction. Two racing cancels therefore
// cannot release twice.
func (s *GORMOrderStore) Update(id string, patch models.OrderPatch) (*models.Order, models.Status, error) {
	var updated models.Order
	var previous models.Status

	err := s.serializableTx(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound("order with ID %s not found", id)
			}
			return fmt.Errorf("failed to get order by ID %s: %w", id, err)
		}
		previous = order.Status

		if patch.Status != nil && *patch.Status != order.Status {
			if !order.Status.CanTransitionTo(*patch.Status) {
				return apperrors.InvalidTransition(order.Status.String(), patch.Status.String())
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
			inv := s.inventory.WithTx(tx)
			for _, item := range order.Items {
				if err := inv.Release(item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
			order.InventoryReleased = true
		}

		if err := tx.Omit(clause.Associations).Save(&order).Error; err != nil {
			return fmt.Errorf("failed to update order %s: %w", id, err)
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &updated, previous, nil
}

// Delete removes the order and its items, first returning any stock the order
// still holds.
func (s *GORMOrderStore) Delete(id string) error {
	return s.serializableTx(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound("order with ID %s not found", id)
			}
			return fmt.Errorf("failed to get order by ID %s: %w", id, err)
		}

		if !order.InventoryReleased {
			inv := s.inventory.WithTx(tx)
			for _, item := range order.Items {
				if err := inv.Release(item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete items of order %s: %w", id, err)
		}
		if err := tx.Delete(&models.Order{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete order %s: %w", id, err)
		}
		return nil
	})
}

// Stats aggregates order counts and revenue server-side. Counting and the
// revenue sum never load full rows; revenue reads only total_amount.
func (s *GORMOrderStore) Stats(start, end *time.Time) (*models.OrderStats, error) {
	window := func(q *gorm.DB) *gorm.DB {
		if start != nil {
			q = q.Where("created_at >= ?", *start)
		}
		if end != nil {
			q = q.Where("created_at <= ?", *end)
		}
		return q
	}

	stats := &models.OrderStats{StatusBreakdown: make(map[models.Status]int64)}

	if err := window(s.db.Model(&models.Order{})).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	if err := window(s.db.Model(&models.Order{})).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum order revenue: %w", err)
	}

	var rows []struct {
		Status models.Status
		Count  int64
	}
	if err := window(s.db.Model(&models.Order{})).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
	}
	stats.PendingOrders = stats.StatusBreakdown[models.StatusPending]

	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / float64(stats.TotalOrders)
	}
	return stats, nil
}
