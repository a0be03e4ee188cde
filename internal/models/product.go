package models

import "gorm.io/gorm"

// Product is the order subsystem's read view into the catalog. Everything but
// Stock is read-only input; stock moves only through the inventory store.
type Product struct {
	ID         string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string  `json:"name" validate:"required,min=3,max=100"`
	Price      float64 `json:"price" validate:"gte=0"`
	Stock      int     `json:"stock" validate:"gte=0"`
	ImageURL   string  `json:"image_url,omitempty"`
	gorm.Model         // CreatedAt, UpdatedAt, DeletedAt
}
