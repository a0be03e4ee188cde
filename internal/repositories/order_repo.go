package repositories

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
)

// ListOptions narrows an order listing. Zero values mean "no filter".
type ListOptions struct {
	UserID string        // restrict to one user's orders
	Status models.Status // restrict to one status
	Limit  int
	Cursor string // opaque, from a previous page's NextCursor
}

// OrderPage is one page of an order listing, newest first.
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// OrderStore defines the interface for order persistence. Implementations must
// make Create, Update and Delete atomic: stock movements and order state
// change together or not at all.
type OrderStore interface {
	// Create persists the order and decrements stock for every item in a
	// single transaction. The order's items carry product snapshots and
	// quantities; any missing product or short stock aborts the whole
	// creation with no stock touched.
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	List(opts ListOptions) (*OrderPage, error)
	// Update applies the patch atomically. The status transition is
	// validated against the stored status, not the caller's view of it,
	// and inventory is released in the same transaction when the stored
	// state requires it. Returns the updated order and the status it had
	// before the patch.
	Update(id string, patch models.OrderPatch) (*models.Order, models.Status, error)
	// Delete removes the order, returning any un-released stock first.
	Delete(id string) error
	// Stats aggregates count, revenue and per-status counts, optionally
	// bounded to orders created within [start, end].
	Stats(start, end *time.Time) (*models.OrderStats, error)
}

// Pagination cursors encode (creation time, order id), the sort key of every
// listing. They hold no server state.

func encodeCursor(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor: %w", err)
	}
	return time.Unix(0, nanos), parts[1], nil
}
