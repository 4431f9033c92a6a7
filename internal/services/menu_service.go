package services

import (
	"context"
	"strings"

	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/repositories"
)

// MenuService handles business logic related to restaurant menus. It also serves as
// the in-process CatalogService.
type MenuService struct {
	repo     repositories.MenuItemRepository
	currency string
}

// NewMenuService creates a new MenuService. Prices must be quoted in currency.
func NewMenuService(repo repositories.MenuItemRepository, currency string) *MenuService {
	return &MenuService{
		repo:     repo,
		currency: currency,
	}
}

// GetMenu retrieves the menu of a restaurant.
func (s *MenuService) GetMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	return s.repo.ListByRestaurant(ctx, restaurantID)
}

// GetItem retrieves one item of a restaurant's menu.
func (s *MenuService) GetItem(ctx context.Context, restaurantID, itemID string) (*models.MenuItem, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RestaurantID != restaurantID {
		return nil, apperr.NotFound("menu item %s not found in restaurant %s", itemID, restaurantID)
	}
	return item, nil
}

// GetMenuItem implements CatalogService.
func (s *MenuService) GetMenuItem(ctx context.Context, restaurantID, itemID string) (CatalogEntry, error) {
	item, err := s.GetItem(ctx, restaurantID, itemID)
	if err != nil {
		return CatalogEntry{}, err
	}
	return CatalogEntry{
		ItemID:       item.ID,
		RestaurantID: item.RestaurantID,
		Name:         item.Name,
		Category:     item.Category,
		Price:        item.Price,
		Available:    item.Available,
	}, nil
}

func (s *MenuService) validatePrice(item *models.MenuItem) error {
	if item.Price.Currency == "" {
		item.Price.Currency = s.currency
	}
	if item.Price.Currency != s.currency {
		return apperr.Validation("price must be quoted in %s", s.currency)
	}
	if !item.Price.Amount.IsPositive() {
		return apperr.Validation("price must be greater than zero")
	}
	if item.Price.Amount.Exponent() < -2 {
		return apperr.Validation("price must have at most two decimal places")
	}
	return nil
}

// CreateItem adds an item to a restaurant's menu.
func (s *MenuService) CreateItem(ctx context.Context, restaurantID string, item *models.MenuItem) error {
	item.RestaurantID = strings.TrimSpace(restaurantID)
	if item.RestaurantID == "" {
		return apperr.Validation("restaurant id is required")
	}
	if err := s.validatePrice(item); err != nil {
		return err
	}
	return s.repo.Create(ctx, item)
}

// UpdateItem replaces an existing item. Placed orders keep the price they were created with.
func (s *MenuService) UpdateItem(ctx context.Context, restaurantID string, item *models.MenuItem) error {
	existing, err := s.GetItem(ctx, restaurantID, item.ID)
	if err != nil {
		return err
	}
	if err := s.validatePrice(item); err != nil {
		return err
	}
	item.RestaurantID = existing.RestaurantID
	item.CreatedAt = existing.CreatedAt
	return s.repo.Update(ctx, item)
}

// DeleteItem removes an item from a restaurant's menu.
func (s *MenuService) DeleteItem(ctx context.Context, restaurantID, itemID string) error {
	if _, err := s.GetItem(ctx, restaurantID, itemID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, itemID)
}
