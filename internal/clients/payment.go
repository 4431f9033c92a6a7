package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"foodorder/internal/services"

	"github.com/google/uuid"
)

type paymentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

type paymentResponse struct {
	GatewayRef string `json:"gateway_ref"`
}

// PaymentClient starts payments at a remote gateway via POST {base}/payments.
type PaymentClient struct {
	baseURL string
	http    *http.Client
}

// NewPaymentClient creates a new PaymentClient.
func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Initiate implements services.PaymentGateway.
func (c *PaymentClient) Initiate(ctx context.Context, req services.PaymentRequest) (string, error) {
	body := paymentRequest{
		OrderID:  req.OrderID,
		Amount:   req.Amount.Amount.StringFixed(2),
		Currency: req.Amount.Currency,
		Method:   req.Method,
	}
	var resp paymentResponse
	if err := doJSON(ctx, c.http, "payment gateway", http.MethodPost, c.baseURL+"/payments", body, &resp); err != nil {
		return "", err
	}
	if resp.GatewayRef == "" {
		return "", fmt.Errorf("payment gateway returned no reference for order %s", req.OrderID)
	}
	return resp.GatewayRef, nil
}

// SandboxGateway accepts every payment request and hands out a reference. The result
// is reported later through the payment callback endpoint.
type SandboxGateway struct{}

// Initiate implements services.PaymentGateway.
func (SandboxGateway) Initiate(ctx context.Context, req services.PaymentRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "sandbox-" + uuid.NewString(), nil
}
