package services

import (
	"context"
	"strings"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/pricing"
	"foodorder/internal/repositories"
	"foodorder/pkg/keylock"

	"github.com/google/uuid"
)

// NewOrder is the input of order creation. Items must already carry authoritative prices.
type NewOrder struct {
	UserID          string
	Source          models.OrderSource
	Items           []models.LineItem
	DeliveryAddress string
	PaymentMethod   string
	Discount        *models.Money
}

// OrderService is the order aggregate: it creates orders and applies status and
// payment changes one at a time per order.
type OrderService struct {
	orderRepo repositories.OrderRepository
	engine    *pricing.Engine
	locks     *keylock.Locker
	now       func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, engine *pricing.Engine) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		engine:    engine,
		locks:     keylock.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Build validates the input and returns an unsaved PENDING order holding its own copy
// of the items and a verified price snapshot.
func (s *OrderService) Build(in NewOrder) (*models.Order, error) {
	if in.UserID == "" {
		return nil, apperr.Unauthenticated("order has no owner")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return nil, apperr.Validation("delivery address is required")
	}
	if in.Source.Kind != models.SourceCart && in.Source.Kind != models.SourceDirect {
		return nil, apperr.Validation("unknown order source %q", in.Source.Kind)
	}

	items := models.CloneItems(in.Items)
	restaurantID := items[0].RestaurantID
	for _, item := range items {
		if item.RestaurantID != restaurantID {
			return nil, apperr.ErrSingleRestaurantCart
		}
	}

	pb, err := s.engine.Price(items, in.Discount)
	if err != nil {
		return nil, err
	}
	if !pricing.Verify(pb, items) {
		return nil, &apperr.Error{Kind: apperr.KindInternal, Message: "price breakdown does not reconcile with line items"}
	}

	now := s.now()
	return &models.Order{
		ID:              uuid.New().String(),
		UserID:          in.UserID,
		RestaurantID:    restaurantID,
		Source:          in.Source,
		Items:           items,
		Pricing:         pb,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   in.PaymentMethod,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		StatusHistory:   []models.StatusChange{{Status: models.StatusPending, At: now, ActorID: in.UserID}},
		PaymentHistory:  []models.PaymentChange{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Place persists an order produced by Build.
func (s *OrderService) Place(ctx context.Context, order *models.Order) error {
	return s.orderRepo.Create(ctx, order)
}

// Create is Build followed by Place.
func (s *OrderService) Create(ctx context.Context, in NewOrder) (*models.Order, error) {
	order, err := s.Build(in)
	if err != nil {
		return nil, err
	}
	if err := s.Place(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Get returns an order by id.
func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// ListByUser returns a user's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// withOrder loads the order under its lock, lets fn change it and saves it when fn
// reports a change.
func (s *OrderService) withOrder(ctx context.Context, id string, fn func(order *models.Order) (bool, error)) (*models.Order, bool, error) {
	unlock, err := s.locks.LockContext(ctx, id)
	if err != nil {
		return nil, false, apperr.Conflict("order %s is busy: %v", id, err)
	}
	defer unlock()

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	changed, err := fn(order)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return order, false, nil
	}
	order.UpdatedAt = s.now()
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// nextStamp keeps history timestamps non-decreasing even if the clock steps back.
func nextStamp(now time.Time, history []models.StatusChange) time.Time {
	if n := len(history); n > 0 && now.Before(history[n-1].At) {
		return history[n-1].At
	}
	return now
}

// CheckTransition reports why actor may not move order to target, or nil.
// Checks run in a fixed order: the payment guard, the state graph, then the actor.
func CheckTransition(order *models.Order, target models.OrderStatus, actor models.Principal) error {
	if target == models.StatusDelivered && order.PaymentStatus != models.PaymentConfirmed {
		return apperr.PaymentNotConfirmed(string(order.PaymentStatus))
	}
	if !order.Status.CanTransitionTo(target) {
		return apperr.InvalidTransition(string(order.Status), string(target))
	}
	if !actorMay(actor, order, target) {
		return apperr.Forbidden("user %s may not move order %s to %s", actor.UserID, order.ID, target)
	}
	return nil
}

// actorMay holds the role rules of the state graph.
func actorMay(actor models.Principal, order *models.Order, target models.OrderStatus) bool {
	switch target {
	case models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusOutForDelivery:
		return actor.HasRole(models.RoleRestaurant)
	case models.StatusDelivered:
		return actor.HasAnyRole(models.RoleCourier, models.RoleRestaurant)
	case models.StatusCancelled:
		return actor.HasRole(models.RoleAdmin) || (order != nil && actor.UserID == order.UserID)
	}
	return false
}

// MayRequest reports whether actor holds a role that could ever set target. It does not
// look at any particular order, so cancellation always passes here.
func MayRequest(actor models.Principal, target models.OrderStatus) bool {
	if target == models.StatusCancelled {
		return actor.UserID != ""
	}
	return actorMay(actor, nil, target)
}

// Transition moves an order to target and appends the change to its status history.
// A rejected transition leaves the order untouched.
func (s *OrderService) Transition(ctx context.Context, orderID string, target models.OrderStatus, actor models.Principal, note string) (*models.Order, error) {
	order, _, err := s.withOrder(ctx, orderID, func(order *models.Order) (bool, error) {
		if err := CheckTransition(order, target, actor); err != nil {
			return false, err
		}
		s.appendStatus(order, target, note, actor.UserID)
		return true, nil
	})
	return order, err
}

func (s *OrderService) appendStatus(order *models.Order, target models.OrderStatus, note, actorID string) {
	order.Status = target
	order.StatusHistory = append(order.StatusHistory, models.StatusChange{
		Status:  target,
		At:      nextStamp(s.now(), order.StatusHistory),
		Note:    strings.TrimSpace(note),
		ActorID: actorID,
	})
}

// Reconciliation tells what a payment report changed.
type Reconciliation struct {
	Applied   bool // false when the report repeated the current state
	Cancelled bool // the order was cancelled because the payment failed
}

// ReconcilePayment applies a gateway report. Repeating the last applied report is a
// no-op, which makes at-least-once callback delivery safe. While the payment is pending,
// a report for any attempt other than the attached one is rejected. A failed payment
// cancels an order that is not already terminal.
func (s *OrderService) ReconcilePayment(ctx context.Context, orderID string, status models.PaymentStatus, gatewayRef string) (*models.Order, Reconciliation, error) {
	var rec Reconciliation
	order, applied, err := s.withOrder(ctx, orderID, func(order *models.Order) (bool, error) {
		if order.PaymentStatus == status && (gatewayRef == "" || gatewayRef == order.PaymentRef) {
			return false, nil
		}
		if order.PaymentStatus == models.PaymentPending && order.PaymentRef != "" && gatewayRef != "" && gatewayRef != order.PaymentRef {
			return false, apperr.StalePaymentRef(gatewayRef, order.PaymentRef)
		}
		if !order.PaymentStatus.CanTransitionTo(status) {
			return false, apperr.InvalidTransition("payment "+string(order.PaymentStatus), string(status))
		}

		now := s.now()
		if n := len(order.PaymentHistory); n > 0 && now.Before(order.PaymentHistory[n-1].At) {
			now = order.PaymentHistory[n-1].At
		}
		order.PaymentStatus = status
		if gatewayRef != "" {
			order.PaymentRef = gatewayRef
		}
		order.PaymentHistory = append(order.PaymentHistory, models.PaymentChange{Status: status, GatewayRef: gatewayRef, At: now})

		if status == models.PaymentFailed && !order.Status.IsTerminal() {
			s.appendStatus(order, models.StatusCancelled, "payment failed", "")
			rec.Cancelled = true
		}
		return true, nil
	})
	if err != nil {
		return nil, Reconciliation{}, err
	}
	rec.Applied = applied
	return order, rec, nil
}

// AttachPaymentRef records the gateway reference of a payment that is still pending.
func (s *OrderService) AttachPaymentRef(ctx context.Context, orderID, gatewayRef string) (*models.Order, error) {
	order, _, err := s.withOrder(ctx, orderID, func(order *models.Order) (bool, error) {
		if order.PaymentStatus != models.PaymentPending || order.PaymentRef == gatewayRef {
			return false, nil
		}
		order.PaymentRef = gatewayRef
		return true, nil
	})
	return order, err
}
