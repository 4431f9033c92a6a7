package repositories

import (
	"context"

	"foodorder/internal/models"
)

// MenuItemRepository defines the interface for catalog data access.
type MenuItemRepository interface {
	ListByRestaurant(ctx context.Context, restaurantID string) ([]models.MenuItem, error)
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id string) error
}
