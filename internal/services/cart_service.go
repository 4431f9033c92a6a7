package services

import (
	"context"
	"strings"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/config"
	"foodorder/internal/models"
	"foodorder/internal/pricing"
	"foodorder/internal/repositories"
	"foodorder/pkg/keylock"
)

// CartService owns each user's active cart. Writes for one user are serialized;
// reads take no lock and may observe the previous version.
type CartService struct {
	repo       repositories.CartRepository
	engine     *pricing.Engine
	locks      *keylock.Locker
	optimistic bool
	now        func() time.Time
}

// NewCartService creates a new CartService. conversion selects how Checkout guards
// against concurrent cart edits (config.ConversionPessimistic or ConversionOptimistic).
func NewCartService(repo repositories.CartRepository, engine *pricing.Engine, conversion string) *CartService {
	return &CartService{
		repo:       repo,
		engine:     engine,
		locks:      keylock.New(),
		optimistic: conversion == config.ConversionOptimistic,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *CartService) snapshot(cart *models.Cart) (*models.CartSnapshot, error) {
	pb, err := s.engine.PriceCart(cart)
	if err != nil {
		return nil, err
	}
	return &models.CartSnapshot{Cart: cart, Pricing: pb}, nil
}

// newCart returns an unsaved cart. It has no ID until the repository stores it.
func (s *CartService) newCart(userID string) *models.Cart {
	return &models.Cart{
		UserID:      userID,
		Items:       []models.LineItem{},
		LastUpdated: s.now(),
		IsActive:    true,
	}
}

// load returns the active cart, or nil when the user has none.
func (s *CartService) load(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.repo.GetActive(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return cart, err
}

// GetOrCreate returns the user's active cart. A user without one gets an empty cart,
// which is only stored once something is added to it.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*models.CartSnapshot, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = s.newCart(userID)
	}
	return s.snapshot(cart)
}

// mutate applies fn to the user's cart under the user's lock and saves the result.
// When fn fails nothing is written. A user without a stored cart only gets one once
// fn leaves an item in it.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(cart *models.Cart) error) (*models.CartSnapshot, error) {
	unlock, err := s.locks.LockContext(ctx, userID)
	if err != nil {
		return nil, apperr.Conflict("cart of user %s is busy: %v", userID, err)
	}
	defer unlock()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored := cart != nil
	if !stored {
		cart = s.newCart(userID)
	}

	if err := fn(cart); err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		if !stored {
			return s.snapshot(s.newCart(userID))
		}
		cart.RestaurantID = ""
	}
	cart.LastUpdated = s.now()
	cart.Version++

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.snapshot(cart)
}

func sameLine(li models.LineItem, itemID, size string) bool {
	return li.ItemID == itemID && li.Size == size
}

// AddItem adds item to the cart, merging it into an existing line with the same item
// and size. The first item scopes the cart to its restaurant.
func (s *CartService) AddItem(ctx context.Context, userID string, item models.LineItem) (*models.CartSnapshot, error) {
	item.ItemID = strings.TrimSpace(item.ItemID)
	if item.ItemID == "" || item.RestaurantID == "" {
		return nil, apperr.Validation("item_id and restaurant_id are required")
	}
	if item.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if item.UnitPrice.IsNegative() {
		return nil, apperr.Validation("unit price must not be negative")
	}
	if item.UnitPrice.Currency != s.engine.Currency() {
		return nil, apperr.Validation("unit price must be quoted in %s", s.engine.Currency())
	}

	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		if cart.RestaurantID != "" && cart.RestaurantID != item.RestaurantID {
			return apperr.ErrSingleRestaurantCart
		}
		cart.RestaurantID = item.RestaurantID

		for i := range cart.Items {
			if sameLine(cart.Items[i], item.ItemID, item.Size) {
				cart.Items[i].Quantity += item.Quantity
				cart.Items[i].UnitPrice = item.UnitPrice
				if item.Name != "" {
					cart.Items[i].Name = item.Name
				}
				if item.SpecialInstructions != "" {
					cart.Items[i].SpecialInstructions = item.SpecialInstructions
				}
				return nil
			}
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

// RemoveItem drops the line for itemID and size.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID, size string) (*models.CartSnapshot, error) {
	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		for i := range cart.Items {
			if sameLine(cart.Items[i], itemID, size) {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
		return apperr.NotFound("item %s is not in the cart", itemID)
	})
}

// SetQuantity replaces a line's quantity. A quantity of zero or less removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID, size string, qty int) (*models.CartSnapshot, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, itemID, size)
	}
	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		for i := range cart.Items {
			if sameLine(cart.Items[i], itemID, size) {
				cart.Items[i].Quantity = qty
				return nil
			}
		}
		return apperr.NotFound("item %s is not in the cart", itemID)
	})
}

// Clear empties the cart and releases its restaurant scope.
func (s *CartService) Clear(ctx context.Context, userID string) (*models.CartSnapshot, error) {
	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		cart.Items = []models.LineItem{}
		return nil
	})
}

// SetInstructions stores free-text instructions for the whole cart.
func (s *CartService) SetInstructions(ctx context.Context, userID, text string) (*models.CartSnapshot, error) {
	text = strings.TrimSpace(text)
	if len(text) > 500 {
		return nil, apperr.Validation("instructions must be at most 500 characters")
	}
	return s.mutate(ctx, userID, func(cart *models.Cart) error {
		if cart.ID == "" {
			return apperr.Validation("add an item to the cart before setting instructions")
		}
		cart.Instructions = text
		return nil
	})
}

// PrepareFunc builds an unsaved order from a private copy of the cart.
type PrepareFunc func(ctx context.Context, cart *models.Cart) (*models.Order, error)

// CommitFunc persists the prepared order.
type CommitFunc func(ctx context.Context, order *models.Order) error

// Checkout converts the user's active cart into an order. The cart is deactivated,
// not deleted, before commit runs, and reactivated if commit fails.
//
// In pessimistic mode the cart lock is held while prepare runs. In optimistic mode
// prepare runs on a snapshot and the conversion fails with Conflict when the cart
// changed in the meantime.
func (s *CartService) Checkout(ctx context.Context, userID string, prepare PrepareFunc, commit CommitFunc) (*models.Order, error) {
	if s.optimistic {
		return s.checkoutOptimistic(ctx, userID, prepare, commit)
	}

	unlock, err := s.locks.LockContext(ctx, userID)
	if err != nil {
		return nil, apperr.Conflict("cart of user %s is busy: %v", userID, err)
	}
	defer unlock()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.IsEmpty() {
		return nil, apperr.ErrEmptyCart
	}

	order, err := prepare(ctx, cart.Clone())
	if err != nil {
		return nil, err
	}
	return s.convert(ctx, cart, order, commit)
}

func (s *CartService) checkoutOptimistic(ctx context.Context, userID string, prepare PrepareFunc, commit CommitFunc) (*models.Order, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.IsEmpty() {
		return nil, apperr.ErrEmptyCart
	}

	order, err := prepare(ctx, snap.Clone())
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.LockContext(ctx, userID)
	if err != nil {
		return nil, apperr.Conflict("cart of user %s is busy: %v", userID, err)
	}
	defer unlock()

	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.ID != snap.ID || cart.Version != snap.Version {
		return nil, apperr.Conflict("cart changed while the order was being prepared")
	}
	return s.convert(ctx, cart, order, commit)
}

// convert runs with the user's cart lock held.
func (s *CartService) convert(ctx context.Context, cart *models.Cart, order *models.Order, commit CommitFunc) (*models.Order, error) {
	cart.IsActive = false
	cart.LastUpdated = s.now()
	cart.Version++
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, err
	}

	if err := commit(ctx, order); err != nil {
		cart.IsActive = true
		cart.Version++
		if restoreErr := s.repo.Save(context.WithoutCancel(ctx), cart); restoreErr != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "order failed and cart could not be restored", restoreErr)
		}
		return nil, err
	}
	return order, nil
}

// Sweep deletes carts, active or converted, untouched for longer than maxAge.
func (s *CartService) Sweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperr.Validation("max age must be positive")
	}
	return s.repo.DeleteStale(ctx, s.now().Add(-maxAge))
}
