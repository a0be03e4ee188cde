package models

import "time"

// OrderItem represents a single line item within an order. Product name, price
// and image are snapshotted at order time and never re-read from the catalog.
type OrderItem struct {
	ID           string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID      string  `json:"order_id" gorm:"index;type:varchar(36)"`
	ProductID    string  `json:"product_id" gorm:"type:varchar(36)"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image,omitempty"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity" validate:"required,gt=0"`
	LineTotal    float64 `json:"line_total"`
}

// ShippingAddress is the delivery address captured with the order. All fields
// except Phone are mandatory.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

// Tracking holds optional shipment tracking details set once an order ships.
type Tracking struct {
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"index;type:varchar(36)"`
	UserEmail       string          `json:"user_email"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Subtotal        float64         `json:"subtotal"`
	TaxAmount       float64         `json:"tax_amount"`
	ShippingCost    float64         `json:"shipping_cost"`
	TotalAmount     float64         `json:"total_amount"`
	Status          Status          `json:"status" gorm:"index;type:varchar(20)"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20)"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:varchar(20)"`
	ShippingAddress ShippingAddress `json:"shipping_address" gorm:"embedded;embeddedPrefix:ship_"`
	Tracking        Tracking        `json:"tracking" gorm:"embedded;embeddedPrefix:track_"`
	Notes           string          `json:"notes,omitempty"`
	// InventoryReleased guards against returning the same stock twice.
	InventoryReleased bool      `json:"-"`
	CreatedAt         time.Time `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// OrderPatch is a partial update to an order. Nil fields are left untouched.
type OrderPatch struct {
	Status          *Status          `json:"status,omitempty"`
	PaymentStatus   *PaymentStatus   `json:"payment_status,omitempty"`
	PaymentMethod   *PaymentMethod   `json:"payment_method,omitempty"`
	Tracking        *Tracking        `json:"tracking,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
}

// ChangedFields returns the names of the fields the patch sets, using the JSON
// names the caller supplied them under.
func (p OrderPatch) ChangedFields() []string {
	var fields []string
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.PaymentStatus != nil {
		fields = append(fields, "payment_status")
	}
	if p.PaymentMethod != nil {
		fields = append(fields, "payment_method")
	}
	if p.Tracking != nil {
		fields = append(fields, "tracking")
	}
	if p.Notes != nil {
		fields = append(fields, "notes")
	}
	if p.ShippingAddress != nil {
		fields = append(fields, "shipping_address")
	}
	return fields
}

// OrderStats is the aggregate view over a set of orders.
type OrderStats struct {
	TotalOrders       int64            `json:"total_orders"`
	TotalRevenue      float64          `json:"total_revenue"`
	AverageOrderValue float64          `json:"average_order_value"`
	PendingOrders     int64            `json:"pending_orders"`
	StatusBreakdown   map[Status]int64 `json:"status_breakdown"`
}
