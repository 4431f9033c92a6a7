package repositories

import (
	"context"
	"time"

	"foodorder/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// GetActive returns the user's active cart or a NotFound error.
	GetActive(ctx context.Context, userID string) (*models.Cart, error)
	// Save inserts or replaces a cart.
	Save(ctx context.Context, cart *models.Cart) error
	// DeleteStale removes carts, active or not, last touched before the cutoff.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}
