package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/logger"
	"foodorder/internal/metrics"
	"foodorder/internal/models"
	"foodorder/pkg/idempotency"
	"foodorder/pkg/keylock"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// Notification events.
const (
	EventOrderCreated   = "order.created"
	EventStatusChanged  = "order.status_changed"
	EventPaymentUpdated = "order.payment_updated"
)

// catalogConcurrency bounds parallel catalog lookups for one direct order.
const catalogConcurrency = 8

// CheckoutRequest converts the caller's cart into an order.
type CheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address" validate:"required,min=5,max=300"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=card wallet"`
	IdempotencyKey  string `json:"-"`
}

// DirectOrderItem is one line of a direct order. UnitPrice is what the client believes
// the item costs; it is accepted but never used for pricing.
type DirectOrderItem struct {
	ItemID              string `json:"item_id" validate:"required,max=64"`
	Quantity            int    `json:"quantity" validate:"required,gte=1,lte=100"`
	Size                string `json:"size,omitempty" validate:"omitempty,max=20"`
	SpecialInstructions string `json:"special_instructions,omitempty" validate:"omitempty,max=500"`
	UnitPrice           string `json:"unit_price,omitempty"`
}

// DirectOrderRequest places an order without a cart.
type DirectOrderRequest struct {
	RestaurantID    string            `json:"restaurant_id" validate:"required,max=64"`
	Items           []DirectOrderItem `json:"items" validate:"required,min=1,max=50,dive"`
	DeliveryAddress string            `json:"delivery_address" validate:"required,min=5,max=300"`
	PaymentMethod   string            `json:"payment_method" validate:"required,oneof=card wallet"`
	IdempotencyKey  string            `json:"-"`
}

// OrchestratorDeps are the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Forwarder *AuthorizationForwarder
	Carts     *CartService
	Orders    *OrderService
	Catalog   CatalogService
	Payments  PaymentGateway
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

// OrchestratorConfig tunes an Orchestrator.
type OrchestratorConfig struct {
	Upstream         UpstreamPolicy
	NotifyTimeout    time.Duration
	VerifyCartPrices bool
	IdempotencyTTL   time.Duration
	IdempotencySize  int
}

// Orchestrator drives orders from creation to delivery. Every entry point resolves the
// caller's credential before touching state.
type Orchestrator struct {
	forwarder *AuthorizationForwarder
	carts     *CartService
	orders    *OrderService
	catalog   CatalogService
	payments  PaymentGateway
	notifier  Notifier
	metrics   *metrics.Metrics
	log       *logger.Logger

	cfg      OrchestratorConfig
	validate *validator.Validate
	created  *idempotency.Store[string]
	keys     *keylock.Locker
	inflight sync.WaitGroup
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	if cfg.IdempotencySize <= 0 {
		cfg.IdempotencySize = 10000
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 10 * time.Minute
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	cfg.Upstream.Metrics = deps.Metrics
	return &Orchestrator{
		forwarder: deps.Forwarder,
		carts:     deps.Carts,
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		payments:  deps.Payments,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		cfg:       cfg,
		validate:  validator.New(),
		created:   idempotency.NewStore[string](cfg.IdempotencySize, cfg.IdempotencyTTL),
		keys:      keylock.New(),
	}
}

// Wait blocks until every notification started so far has finished.
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

func (o *Orchestrator) resolve(ctx context.Context, bearer string) (models.Principal, context.Context, error) {
	p, err := o.forwarder.Resolve(ctx, bearer)
	if err != nil {
		return models.Principal{}, ctx, err
	}
	return p, WithCredential(ctx, p.Credential), nil
}

func (o *Orchestrator) validateRequest(req any) error {
	if err := o.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, e := range verrs {
				fields = append(fields, e.Namespace()+" failed on '"+e.Tag()+"'")
			}
			return apperr.Validation("invalid request: %s", strings.Join(fields, "; "))
		}
		return apperr.Validation("invalid request: %v", err)
	}
	return nil
}

// idempotent runs create once per (user, key). A repeated key returns the order created
// the first time, starting its payment again if the first attempt could not.
func (o *Orchestrator) idempotent(ctx context.Context, userID, key string, create func() (*models.Order, error)) (*models.Order, error) {
	key, err := idempotency.Key(key)
	if err != nil {
		return nil, apperr.Validation("%s header must be at most %d characters", idempotency.Header, idempotency.MaxKeyLength)
	}
	if key == "" {
		return create()
	}

	unlock, err := o.keys.LockContext(ctx, userID+"|"+key)
	if err != nil {
		return nil, apperr.Conflict("request with the same idempotency key is in progress")
	}
	defer unlock()

	if orderID, ok := o.created.Get(userID, key); ok {
		order, err := o.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus == models.PaymentPending && order.PaymentRef == "" && !order.Status.IsTerminal() {
			// The first attempt created the order but never started its payment.
			return o.resumePayment(ctx, order)
		}
		return order, nil
	}
	order, err := create()
	if order != nil {
		o.created.Put(userID, key, order.ID)
	}
	return order, err
}

// CreateOrderFromCart converts the caller's active cart into an order and starts payment.
// When only the payment start fails, the order is returned together with an
// UpstreamUnavailable error; InitiatePayment resumes it.
func (o *Orchestrator) CreateOrderFromCart(ctx context.Context, bearer string, req CheckoutRequest) (*models.Order, error) {
	p, ctx, err := o.resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	if err := o.validateRequest(req); err != nil {
		return nil, err
	}

	return o.idempotent(ctx, p.UserID, req.IdempotencyKey, func() (*models.Order, error) {
		prepare := func(ctx context.Context, cart *models.Cart) (*models.Order, error) {
			items := cart.Items
			if o.cfg.VerifyCartPrices {
				quoted, err := o.quote(ctx, cart.RestaurantID, cart.Items)
				if err != nil {
					return nil, err
				}
				items = quoted
			}
			return o.orders.Build(NewOrder{
				UserID:          p.UserID,
				Source:          models.OrderSource{Kind: models.SourceCart, CartID: cart.ID},
				Items:           items,
				DeliveryAddress: req.DeliveryAddress,
				PaymentMethod:   req.PaymentMethod,
			})
		}

		order, err := o.carts.Checkout(ctx, p.UserID, prepare, o.orders.Place)
		if err != nil {
			return nil, err
		}
		return o.afterCreate(ctx, order)
	})
}

// CreateDirectOrder prices the submitted items from the catalog, ignoring any client
// quoted price, and creates the order.
func (o *Orchestrator) CreateDirectOrder(ctx context.Context, bearer string, req DirectOrderRequest) (*models.Order, error) {
	p, ctx, err := o.resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	if err := o.validateRequest(req); err != nil {
		return nil, err
	}

	return o.idempotent(ctx, p.UserID, req.IdempotencyKey, func() (*models.Order, error) {
		lines := make([]models.LineItem, len(req.Items))
		for i, it := range req.Items {
			lines[i] = models.LineItem{
				ItemID:              it.ItemID,
				Quantity:            it.Quantity,
				Size:                it.Size,
				SpecialInstructions: it.SpecialInstructions,
				RestaurantID:        req.RestaurantID,
			}
		}
		items, err := o.quote(ctx, req.RestaurantID, lines)
		if err != nil {
			return nil, err
		}

		order, err := o.orders.Create(ctx, NewOrder{
			UserID:          p.UserID,
			Source:          models.OrderSource{Kind: models.SourceDirect},
			Items:           items,
			DeliveryAddress: req.DeliveryAddress,
			PaymentMethod:   req.PaymentMethod,
		})
		if err != nil {
			return nil, err
		}
		return o.afterCreate(ctx, order)
	})
}

// quote replaces name, category and unit price of every line with the catalog's
// current values. Lookups run in parallel; the first failure aborts the rest.
func (o *Orchestrator) quote(ctx context.Context, restaurantID string, lines []models.LineItem) ([]models.LineItem, error) {
	out := models.CloneItems(lines)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogConcurrency)

	for i := range out {
		i := i
		g.Go(func() error {
			var entry CatalogEntry
			err := o.cfg.Upstream.read(gctx, "catalog", func(ctx context.Context) error {
				var lerr error
				entry, lerr = o.catalog.GetMenuItem(ctx, restaurantID, out[i].ItemID)
				return lerr
			})
			if err != nil {
				return err
			}
			if entry.RestaurantID != "" && entry.RestaurantID != restaurantID {
				return apperr.NotFound("item %s not found in restaurant %s", out[i].ItemID, restaurantID)
			}
			if !entry.Available {
				return apperr.Validation("item %s is not currently available", out[i].ItemID)
			}
			out[i].Name = entry.Name
			out[i].Category = entry.Category
			out[i].UnitPrice = entry.Price
			out[i].RestaurantID = restaurantID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// QuoteItem prices a single cart line from the catalog. The caller must already be
// authenticated; ctx carries the credential forwarded to the catalog.
func (o *Orchestrator) QuoteItem(ctx context.Context, restaurantID string, line models.LineItem) (models.LineItem, error) {
	line.RestaurantID = restaurantID
	quoted, err := o.quote(ctx, restaurantID, []models.LineItem{line})
	if err != nil {
		return models.LineItem{}, err
	}
	return quoted[0], nil
}

// afterCreate runs the best-effort and resumable steps that follow a persisted order.
func (o *Orchestrator) afterCreate(ctx context.Context, order *models.Order) (*models.Order, error) {
	o.metrics.OrderCreated(string(order.Source.Kind))
	o.log.Info("order_created", logger.RequestID(ctx), "Order created", map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.Pricing.Total.String(),
		"source":   order.Source.Kind,
	})
	o.notify(ctx, order.UserID, EventOrderCreated, map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
		"total":    order.Pricing.Total.Amount.StringFixed(2),
		"currency": order.Pricing.Total.Currency,
	})

	return o.resumePayment(ctx, order)
}

// resumePayment starts payment for order. On failure the unchanged order is returned
// together with the error.
func (o *Orchestrator) resumePayment(ctx context.Context, order *models.Order) (*models.Order, error) {
	paid, err := o.startPayment(ctx, order)
	if err != nil {
		return order, err
	}
	return paid, nil
}

// startPayment calls the gateway once. Payment calls change payment state, so they are
// never retried here.
func (o *Orchestrator) startPayment(ctx context.Context, order *models.Order) (*models.Order, error) {
	var ref string
	err := o.cfg.Upstream.call(ctx, "payment gateway", func(ctx context.Context) error {
		var perr error
		ref, perr = o.payments.Initiate(ctx, PaymentRequest{
			OrderID: order.ID,
			Amount:  order.Pricing.Total,
			Method:  order.PaymentMethod,
		})
		return perr
	})
	if err != nil {
		o.log.Warn("payment_initiation_failed", logger.RequestID(ctx), "Payment could not be started; order stays PENDING", err, map[string]any{
			"order_id": order.ID,
		})
		return nil, err
	}
	return o.orders.AttachPaymentRef(ctx, order.ID, ref)
}

// InitiatePayment restarts payment for a pending order of the caller.
func (o *Orchestrator) InitiatePayment(ctx context.Context, orderID, bearer string) (*models.Order, error) {
	p, ctx, err := o.resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	order, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.UserID && !p.HasRole(models.RoleAdmin) {
		return nil, apperr.Forbidden("order %s belongs to another user", orderID)
	}
	if order.PaymentStatus != models.PaymentPending || order.Status.IsTerminal() {
		return nil, apperr.Conflict("order %s is %s with payment %s; payment cannot be started", orderID, order.Status, order.PaymentStatus)
	}
	return o.startPayment(ctx, order)
}

// UpdateStatus moves an order to status on behalf of the caller and notifies the
// order's owner.
func (o *Orchestrator) UpdateStatus(ctx context.Context, orderID, status, note, bearer string) (*models.Order, error) {
	p, ctx, err := o.resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	target, ok := models.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ok {
		return nil, apperr.Validation("unknown order status %q", status)
	}
	if len(note) > 500 {
		return nil, apperr.Validation("note must be at most 500 characters")
	}
	if !MayRequest(p, target) {
		o.metrics.TransitionRejected(string(apperr.KindForbidden))
		return nil, apperr.Forbidden("role %v may not set status %s", p.Roles, target)
	}

	order, err := o.orders.Transition(ctx, orderID, target, p, note)
	if err != nil {
		o.metrics.TransitionRejected(string(apperr.KindOf(err)))
		return nil, err
	}

	o.metrics.TransitionAccepted(string(target))
	o.log.Info("order_status_changed", logger.RequestID(ctx), "Order status changed", map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
		"actor_id": p.UserID,
	})
	o.notify(ctx, order.UserID, EventStatusChanged, map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
		"note":     strings.TrimSpace(note),
	})
	return order, nil
}

// RecordPaymentCallback reconciles a payment result reported by the gateway. Duplicate
// reports succeed without changing the order.
func (o *Orchestrator) RecordPaymentCallback(ctx context.Context, orderID, status, gatewayRef string) (*models.Order, error) {
	ps, ok := models.ParsePaymentStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ok {
		o.metrics.PaymentCallback("UNKNOWN", "rejected")
		return nil, apperr.Validation("unknown payment status %q", status)
	}

	order, rec, err := o.orders.ReconcilePayment(ctx, orderID, ps, strings.TrimSpace(gatewayRef))
	if err != nil {
		o.metrics.PaymentCallback(string(ps), "rejected")
		return nil, err
	}
	if !rec.Applied {
		o.metrics.PaymentCallback(string(ps), "duplicate")
		return order, nil
	}

	o.metrics.PaymentCallback(string(ps), "applied")
	o.log.Info("payment_reconciled", logger.RequestID(ctx), "Payment status updated", map[string]any{
		"order_id":       order.ID,
		"payment_status": order.PaymentStatus,
		"gateway_ref":    order.PaymentRef,
	})
	o.notify(ctx, order.UserID, EventPaymentUpdated, map[string]any{
		"order_id":       order.ID,
		"payment_status": order.PaymentStatus,
	})
	if rec.Cancelled {
		o.metrics.TransitionAccepted(string(order.Status))
		o.notify(ctx, order.UserID, EventStatusChanged, map[string]any{
			"order_id": order.ID,
			"status":   order.Status,
			"note":     "payment failed",
		})
	}
	return order, nil
}

// GetOrder returns an order to its owner or to staff roles.
func (o *Orchestrator) GetOrder(ctx context.Context, orderID, bearer string) (*models.Order, error) {
	p, ctx, err := o.resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	order, err := o.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.UserID && !p.HasAnyRole(models.RoleRestaurant, models.RoleCourier, models.RoleAdmin) {
		return nil, apperr.Forbidden("order %s belongs to another user", orderID)
	}
	return order, nil
}

// ListOrders returns the caller's own orders, newest first.
func (o *Orchestrator) ListOrders(ctx context.Context, bearer string) ([]models.Order, error) {
	p, ctx, err := o.resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}
	return o.orders.ListByUser(ctx, p.UserID)
}

// notify sends in the background. Failures are logged and counted, never returned.
func (o *Orchestrator) notify(ctx context.Context, userID, event string, payload map[string]any) {
	if o.notifier == nil {
		return
	}
	requestID := logger.RequestID(ctx)
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.NotifyTimeout)
		defer cancel()

		if err := o.notifier.Notify(nctx, userID, event, payload); err != nil {
			o.metrics.NotificationFailed()
			o.log.Warn("notification_failed", requestID, "Notification could not be delivered", err, map[string]any{
				"user_id": userID,
				"event":   event,
			})
		}
	}()
}
