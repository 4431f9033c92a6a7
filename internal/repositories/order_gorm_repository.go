package repositories

import (
	"context"

	"foodorder/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Create inserts a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return dbError(err, "order", order.ID, "create")
	}
	return nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "order", id, "get")
	}
	return &order, nil
}

// ListByUser retrieves the user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, dbError(err, "orders of user", userID, "list")
	}
	return orders, nil
}

// Update writes the status, payment and history columns. Items and pricing are never rewritten.
func (r *GORMOrderRepository) Update(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).Model(order).
		Select("Status", "PaymentStatus", "PaymentRef", "StatusHistory", "PaymentHistory", "UpdatedAt").
		Updates(order)
	if res.Error != nil {
		return dbError(res.Error, "order", order.ID, "update")
	}
	if res.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "order", order.ID, "update")
	}
	return nil
}
