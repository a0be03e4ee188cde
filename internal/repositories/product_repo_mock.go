package repositories

import (
	"sync"

	"github.com/google/uuid"

	"storefront/internal/apperrors"
	"storefront/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository
// and InventoryStore, used by tests and local runs without a database.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("product with ID %s not found", id)
	}
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products[product.ID] = *product
	return nil
}

// Reserve decrements the product's stock by quantity. The check and the
// decrement happen under one lock, so racing reservations for the last unit
// cannot both pass.
func (r *MockProductRepository) Reserve(productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return apperrors.NotFound("product with ID %s not found", productID)
	}
	if product.Stock < quantity {
		return apperrors.InsufficientStock(productID, product.Stock, quantity)
	}
	product.Stock -= quantity
	r.products[productID] = product
	return nil
}

// Release returns quantity units to the product's stock. A vanished product
// is a no-op.
func (r *MockProductRepository) Release(productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return nil
	}
	product.Stock += quantity
	r.products[productID] = product
	return nil
}

// StockOf reports the current stock of a product, for test assertions.
func (r *MockProductRepository) StockOf(productID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.products[productID].Stock
}
