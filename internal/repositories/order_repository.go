package repositories

import (
	"context"

	"foodorder/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	// Update persists the mutable fields of an existing order.
	Update(ctx context.Context, order *models.Order) error
}
