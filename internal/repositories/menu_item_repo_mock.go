package repositories

import (
	"context"
	"sort"
	"sync"

	"foodorder/internal/apperr"
	"foodorder/internal/models"

	"github.com/google/uuid"
)

// MockMenuItemRepository is an in-memory implementation of MenuItemRepository.
type MockMenuItemRepository struct {
	items map[string]models.MenuItem
	mu    sync.RWMutex
}

// NewMockMenuItemRepository creates a new instance of MockMenuItemRepository.
func NewMockMenuItemRepository() *MockMenuItemRepository {
	return &MockMenuItemRepository{
		items: make(map[string]models.MenuItem),
	}
}

// ListByRestaurant returns the menu of a restaurant ordered by name.
func (r *MockMenuItemRepository) ListByRestaurant(_ context.Context, restaurantID string) ([]models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	menu := make([]models.MenuItem, 0)
	for _, item := range r.items {
		if item.RestaurantID == restaurantID {
			menu = append(menu, item)
		}
	}
	sort.Slice(menu, func(i, j int) bool { return menu[i].Name < menu[j].Name })
	return menu, nil
}

// GetByID returns a menu item by its ID.
func (r *MockMenuItemRepository) GetByID(_ context.Context, id string) (*models.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("menu item %s not found", id)
	}
	return &item, nil
}

// Create adds a new menu item.
func (r *MockMenuItemRepository) Create(_ context.Context, item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	r.items[item.ID] = *item
	return nil
}

// Update modifies an existing menu item.
func (r *MockMenuItemRepository) Update(_ context.Context, item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return apperr.NotFound("menu item %s not found", item.ID)
	}
	r.items[item.ID] = *item
	return nil
}

// Delete removes a menu item by its ID.
func (r *MockMenuItemRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperr.NotFound("menu item %s not found", id)
	}
	delete(r.items, id)
	return nil
}
