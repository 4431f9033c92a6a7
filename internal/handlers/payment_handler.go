package handlers

import (
	"crypto/subtle"

	"foodorder/internal/apperr"
	"foodorder/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// HeaderCallbackSecret authenticates the payment gateway on callbacks.
const HeaderCallbackSecret = "X-Callback-Secret"

// PaymentHandler receives payment results from the gateway.
type PaymentHandler struct {
	orch     *services.Orchestrator
	secret   []byte
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler. With an empty secret every callback
// is rejected.
func NewPaymentHandler(orch *services.Orchestrator, secret string) *PaymentHandler {
	return &PaymentHandler{
		orch:     orch,
		secret:   []byte(secret),
		validate: validator.New(),
	}
}

func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/payments/callback", h.HandleCallback)
}

// PaymentCallbackRequest is what the gateway reports for one order.
type PaymentCallbackRequest struct {
	OrderID    string `json:"order_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	GatewayRef string `json:"gateway_ref" validate:"omitempty,max=128"`
}

// HandleCallback reconciles a reported payment result. Repeated reports succeed.
func (h *PaymentHandler) HandleCallback(c *fiber.Ctx) error {
	given := []byte(c.Get(HeaderCallbackSecret))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(given, h.secret) != 1 {
		return apperr.Unauthenticated("invalid callback secret")
	}

	var req PaymentCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	order, err := h.orch.RecordPaymentCallback(c.UserContext(), req.OrderID, req.Status, req.GatewayRef)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":        "Payment status recorded",
		"order_id":       order.ID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
}
