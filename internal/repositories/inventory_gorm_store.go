package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/apperrors"
	"storefront/internal/models"
)

// GORMInventoryStore is a GORM implementation of InventoryStore. It owns the
// stock movement SQL; the order store funnels its in-transaction reservations
// and releases through here via WithTx.
type GORMInventoryStore struct {
	db *gorm.DB
}

// NewGORMInventoryStore creates a new instance of GORMInventoryStore.
func NewGORMInventoryStore(db *gorm.DB) *GORMInventoryStore {
	return &GORMInventoryStore{
		db: db,
	}
}

// WithTx returns a store operating inside the given transaction.
func (s *GORMInventoryStore) WithTx(tx *gorm.DB) *GORMInventoryStore {
	return &GORMInventoryStore{db: tx}
}

// Reserve decrements the product's stock by quantity. The stock >= quantity
// predicate makes the check-and-decrement a single atomic statement, so
// concurrent reservations for the last unit cannot both pass.
func (s *GORMInventoryStore) Reserve(productID string, quantity int) error {
	res := s.db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("failed to reserve stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the product is gone or the stock is short; re-read to
		// tell the two apart.
		var product models.Product
		if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound("product with ID %s not found", productID)
			}
			return fmt.Errorf("failed to read product %s: %w", productID, err)
		}
		return apperrors.InsufficientStock(productID, product.Stock, quantity)
	}
	return nil
}

// Release returns quantity units to the product's stock. A vanished product
// is a no-op, so cancelling an order whose product was removed from the
// catalog still succeeds.
func (s *GORMInventoryStore) Release(productID string, quantity int) error {
	res := s.db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("failed to release stock for product %s: %w", productID, res.Error)
	}
	return nil
}
