package models

import "time"

// Cart is a user's mutable basket. At most one cart per user is active; converted carts
// are kept inactive for audit and re-ordering.
type Cart struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string     `json:"user_id" gorm:"index;type:varchar(36)"`
	RestaurantID string     `json:"restaurant_id,omitempty" gorm:"type:varchar(64)"`
	Items        []LineItem `json:"items" gorm:"serializer:json"`
	Instructions string     `json:"instructions,omitempty"`
	LastUpdated  time.Time  `json:"last_updated" gorm:"index"`
	IsActive     bool       `json:"is_active" gorm:"index"`
	Version      int64      `json:"version"`
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = CloneItems(c.Items)
	return &out
}

// CartSnapshot is what every cart operation hands back: the cart and its live totals.
type CartSnapshot struct {
	Cart    *Cart          `json:"cart"`
	Pricing PriceBreakdown `json:"pricing"`
}
