package services

import (
	"context"

	"foodorder/internal/models"
)

// Identity is what the identity collaborator reports for a bearer token.
type Identity struct {
	Valid  bool
	UserID string
	Roles  []string
}

// IdentityVerifier resolves an opaque bearer token. A rejected token is reported as
// Identity{Valid: false} with a nil error; an error means the verifier could not answer.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// CatalogEntry is the catalog's current truth about one menu item.
type CatalogEntry struct {
	ItemID       string
	RestaurantID string
	Name         string
	Category     string
	Price        models.Money
	Available    bool
}

// CatalogService looks up menu items. A missing item is an apperr NotFound error.
type CatalogService interface {
	GetMenuItem(ctx context.Context, restaurantID, itemID string) (CatalogEntry, error)
}

// PaymentRequest asks the gateway to collect an order's total.
type PaymentRequest struct {
	OrderID string
	Amount  models.Money
	Method  string
}

// PaymentGateway starts payments. The outcome arrives later as a payment callback.
type PaymentGateway interface {
	Initiate(ctx context.Context, req PaymentRequest) (gatewayRef string, err error)
}

// Notifier delivers user notifications. Callers never wait on it in the critical path.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload map[string]any) error
}

type credentialKey struct{}

// WithCredential stores the caller's authorization header so that outgoing calls can forward it.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialKey{}, credential)
}

// CredentialFromContext returns the forwarded authorization header, if any.
func CredentialFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(credentialKey{}).(string); ok {
		return v
	}
	return ""
}
