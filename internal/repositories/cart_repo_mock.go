package repositories

import (
	"context"
	"sync"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]*models.Cart
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]*models.Cart),
	}
}

// GetActive returns the active cart of userID.
func (r *MockCartRepository) GetActive(_ context.Context, userID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cart := range r.carts {
		if cart.UserID == userID && cart.IsActive {
			return cart.Clone(), nil
		}
	}
	return nil, apperr.NotFound("active cart for user %s not found", userID)
}

// Save stores a copy of cart.
func (r *MockCartRepository) Save(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	r.carts[cart.ID] = cart.Clone()
	return nil
}

// DeleteStale removes carts not updated since before.
func (r *MockCartRepository) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, cart := range r.carts {
		if cart.LastUpdated.Before(before) {
			delete(r.carts, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored carts, active or not.
func (r *MockCartRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}
