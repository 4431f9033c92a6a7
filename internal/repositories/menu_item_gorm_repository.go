package repositories

import (
	"context"

	"foodorder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMMenuItemRepository is a GORM implementation of MenuItemRepository.
type GORMMenuItemRepository struct {
	db *gorm.DB
}

// NewGORMMenuItemRepository creates a new instance of GORMMenuItemRepository.
func NewGORMMenuItemRepository(db *gorm.DB) *GORMMenuItemRepository {
	return &GORMMenuItemRepository{
		db: db,
	}
}

// ListByRestaurant retrieves a restaurant's menu ordered by name.
func (r *GORMMenuItemRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	var menu []models.MenuItem
	err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("name").Find(&menu).Error
	if err != nil {
		return nil, dbError(err, "menu of restaurant", restaurantID, "list")
	}
	return menu, nil
}

// GetByID retrieves a single menu item by its ID.
func (r *GORMMenuItemRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "menu item", id, "get")
	}
	return &item, nil
}

// Create creates a new menu item.
func (r *GORMMenuItemRepository) Create(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return dbError(err, "menu item", item.ID, "create")
	}
	return nil
}

// Update updates an existing menu item.
func (r *GORMMenuItemRepository) Update(ctx context.Context, item *models.MenuItem) error {
	// Save inserts when the row is missing, so existence is checked first.
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
		return dbError(err, "menu item", item.ID, "update")
	}
	if count == 0 {
		return dbError(gorm.ErrRecordNotFound, "menu item", item.ID, "update")
	}
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return dbError(err, "menu item", item.ID, "update")
	}
	return nil
}

// Delete deletes a menu item by its ID.
func (r *GORMMenuItemRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.MenuItem{}, "id = ?", id)
	if res.Error != nil {
		return dbError(res.Error, "menu item", id, "delete")
	}
	if res.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "menu item", id, "delete")
	}
	return nil
}
