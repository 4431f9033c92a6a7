package services_test

import (
	"context"
	"sync"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/models"
	"foodorder/internal/pricing"
	"foodorder/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockIdentityVerifier is a mock implementation of services.IdentityVerifier
type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, token string) (services.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(services.Identity), args.Error(1)
}

// MockCatalogService is a mock implementation of services.CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetMenuItem(ctx context.Context, restaurantID, itemID string) (services.CatalogEntry, error) {
	args := m.Called(ctx, restaurantID, itemID)
	return args.Get(0).(services.CatalogEntry), args.Error(1)
}

// MockPaymentGateway is a mock implementation of services.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Initiate(ctx context.Context, req services.PaymentRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// recordingNotifier keeps every notification; err makes every call fail.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, userID, event string, _ map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, userID+":"+event)
	return n.err
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func usd(s string) models.Money { return models.MustMoney(s, "USD") }

func testEngine() *pricing.Engine {
	return pricing.NewEngine(config.PricingConfig{
		TaxRate:     decimal.NullDecimal{Decimal: decimal.RequireFromString("0.10"), Valid: true},
		DeliveryFee: decimal.RequireFromString("2.99"),
		Currency:    "USD",
	})
}

func burger(restaurantID string, qty int) models.LineItem {
	return models.LineItem{ItemID: "burger", Name: "Burger", UnitPrice: usd("5.00"), Quantity: qty, RestaurantID: restaurantID}
}

func fries(restaurantID string, qty int) models.LineItem {
	return models.LineItem{ItemID: "fries", Name: "Fries", UnitPrice: usd("2.50"), Quantity: qty, RestaurantID: restaurantID}
}

func fastPolicy() services.UpstreamPolicy {
	return services.UpstreamPolicy{Timeout: time.Second, Backoff: time.Millisecond}
}

var (
	customer   = models.Principal{UserID: "customer-1", Roles: []string{models.RoleCustomer}}
	restaurant = models.Principal{UserID: "restaurant-1", Roles: []string{models.RoleRestaurant}}
	courier    = models.Principal{UserID: "courier-1", Roles: []string{models.RoleCourier}}
	admin      = models.Principal{UserID: "admin-1", Roles: []string{models.RoleAdmin}}
)
