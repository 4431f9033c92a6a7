package models

import "time"

// LineItem is one purchasable entry of a cart or an order. It holds no references,
// so copying the value copies the item.
type LineItem struct {
	ItemID              string `json:"item_id" validate:"required,max=64"`
	Name                string `json:"name" validate:"omitempty,max=100"`
	UnitPrice           Money  `json:"unit_price"`
	Quantity            int    `json:"quantity" validate:"required,gte=1,lte=100"`
	SpecialInstructions string `json:"special_instructions,omitempty" validate:"omitempty,max=500"`
	Category            string `json:"category,omitempty" validate:"omitempty,max=50"`
	Size                string `json:"size,omitempty" validate:"omitempty,max=20"`
	RestaurantID        string `json:"restaurant_id" validate:"required,max=64"`
}

// CloneItems returns an independent copy of items.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// PriceBreakdown is derived from line items and pricing configuration. Discount is optional.
type PriceBreakdown struct {
	Subtotal    Money  `json:"subtotal"`
	Tax         Money  `json:"tax"`
	DeliveryFee Money  `json:"delivery_fee"`
	Discount    *Money `json:"discount,omitempty"`
	Total       Money  `json:"total"`
}

// SourceKind discriminates how an order entered the system.
type SourceKind string

const (
	SourceCart   SourceKind = "cart"
	SourceDirect SourceKind = "direct"
)

// OrderSource records where the order's items came from. CartID is set only for SourceCart.
type OrderSource struct {
	Kind   SourceKind `json:"kind"`
	CartID string     `json:"cart_id,omitempty"`
}

// StatusChange is one accepted order status transition.
type StatusChange struct {
	Status  OrderStatus `json:"status"`
	At      time.Time   `json:"at"`
	Note    string      `json:"note,omitempty"`
	ActorID string      `json:"actor_id,omitempty"`
}

// PaymentChange is one accepted payment status change reported by the gateway.
type PaymentChange struct {
	Status     PaymentStatus `json:"status"`
	GatewayRef string        `json:"gateway_ref,omitempty"`
	At         time.Time     `json:"at"`
}

// Order is what was purchased. Items and Pricing are frozen at creation; only the status
// fields and the two history logs change afterwards.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"index;type:varchar(36)"`
	RestaurantID    string          `json:"restaurant_id" gorm:"index;type:varchar(64)"`
	Source          OrderSource     `json:"source" gorm:"serializer:json"`
	Items           []LineItem      `json:"items" gorm:"serializer:json"`
	Pricing         PriceBreakdown  `json:"pricing" gorm:"serializer:json"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(32)"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(32)"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(32)"`
	PaymentRef      string          `json:"payment_ref,omitempty" gorm:"type:varchar(128)"`
	DeliveryAddress string          `json:"delivery_address"`
	StatusHistory   []StatusChange  `json:"status_history" gorm:"serializer:json"`
	PaymentHistory  []PaymentChange `json:"payment_history" gorm:"serializer:json"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = CloneItems(o.Items)
	if o.Pricing.Discount != nil {
		d := *o.Pricing.Discount
		c.Pricing.Discount = &d
	}
	c.StatusHistory = append([]StatusChange(nil), o.StatusHistory...)
	c.PaymentHistory = append([]PaymentChange(nil), o.PaymentHistory...)
	return &c
}

// LastPaymentChange returns the most recent payment change, if any.
func (o *Order) LastPaymentChange() (PaymentChange, bool) {
	if len(o.PaymentHistory) == 0 {
		return PaymentChange{}, false
	}
	return o.PaymentHistory[len(o.PaymentHistory)-1], true
}
