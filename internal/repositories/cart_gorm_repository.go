package repositories

import (
	"context"
	"time"

	"foodorder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetActive retrieves the active cart of a user.
func (r *GORMCartRepository) GetActive(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_updated DESC").
		First(&cart).Error
	if err != nil {
		return nil, dbError(err, "active cart of user", userID, "get")
	}
	return &cart, nil
}

// Save inserts the cart or updates every column of an existing one.
func (r *GORMCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Save(cart).Error; err != nil {
		return dbError(err, "cart", cart.ID, "save")
	}
	return nil
}

// DeleteStale deletes carts last updated before the cutoff.
func (r *GORMCartRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_updated < ?", before).Delete(&models.Cart{})
	if res.Error != nil {
		return 0, dbError(res.Error, "carts before", before.Format(time.RFC3339), "delete")
	}
	return res.RowsAffected, nil
}
