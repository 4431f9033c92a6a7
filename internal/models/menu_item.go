package models

import "time"

// MenuItem is a restaurant's catalog entry, the source of truth for prices.
type MenuItem struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	RestaurantID string    `json:"restaurant_id" gorm:"index;type:varchar(64)"`
	Name         string    `json:"name" validate:"required,min=2,max=100"`
	Description  string    `json:"description" validate:"omitempty,max=500"`
	Price        Money     `json:"price" gorm:"embedded;embeddedPrefix:price_"`
	Category     string    `json:"category" validate:"omitempty,max=50"`
	Available    bool      `json:"available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
