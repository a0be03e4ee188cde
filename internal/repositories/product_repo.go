package repositories

import (
	"storefront/internal/models"
)

// ProductRepository defines the read access this subsystem has into the
// product catalog. Catalog management lives elsewhere; Create exists for
// seeding and tests.
type ProductRepository interface {
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
}

// InventoryStore exposes atomic stock movements on a single product. Quantity
// must be a positive integer; enforcing that is the caller's job.
type InventoryStore interface {
	// Reserve decrements the product's stock by quantity. Two concurrent
	// reservations racing for the last unit must not both succeed.
	Reserve(productID string, quantity int) error
	// Release returns quantity units to the product's stock. If the
	// product no longer exists this is a no-op.
	Release(productID string, quantity int) error
}
