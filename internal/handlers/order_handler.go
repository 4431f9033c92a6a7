package handlers

import (
	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/services"
	"foodorder/pkg/idempotency"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders. Every route hands the raw
// Authorization header to the orchestrator, which resolves it itself.
type OrderHandler struct {
	orch *services.Orchestrator
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orch *services.Orchestrator) *OrderHandler {
	return &OrderHandler{
		orch: orch,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Post("/checkout", h.HandleCheckout)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
	orderRoutes.Post("/:id/payment", h.HandleInitiatePayment)
}

func bearer(c *fiber.Ctx) string {
	return c.Get(fiber.HeaderAuthorization)
}

// created renders a newly created order. An order returned together with an
// UpstreamUnavailable error exists but its payment has not started yet.
func created(c *fiber.Ctx, order *models.Order, err error) error {
	if err != nil {
		if order != nil && apperr.Is(err, apperr.KindUpstreamUnavailable) {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"message":       "Order created; payment could not be started, retry POST /orders/" + order.ID + "/payment",
				"order":         order,
				"payment_error": errorBody(err)["message"],
			})
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetOrders retrieves the caller's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.orch.ListOrders(c.UserContext(), bearer(c))
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.orch.GetOrder(c.UserContext(), c.Params("id"), bearer(c))
	if err != nil {
		return err
	}
	return c.JSON(order)
}

// HandleCreateOrder creates a direct order priced from the catalog.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.DirectOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	req.IdempotencyKey = c.Get(idempotency.Header)

	order, err := h.orch.CreateDirectOrder(c.UserContext(), bearer(c), req)
	return created(c, order, err)
}

// HandleCheckout converts the caller's cart into an order.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	req.IdempotencyKey = c.Get(idempotency.Header)

	order, err := h.orch.CreateOrderFromCart(c.UserContext(), bearer(c), req)
	return created(c, order, err)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var updateData struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := c.BodyParser(&updateData); err != nil {
		return invalidBody(c, err)
	}
	if updateData.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	order, err := h.orch.UpdateStatus(c.UserContext(), c.Params("id"), updateData.Status, updateData.Note, bearer(c))
	if err != nil {
		return err
	}
	return c.JSON(order)
}

// HandleInitiatePayment restarts payment for a pending order.
func (h *OrderHandler) HandleInitiatePayment(c *fiber.Ctx) error {
	order, err := h.orch.InitiatePayment(c.UserContext(), c.Params("id"), bearer(c))
	if err != nil {
		return err
	}
	return c.JSON(order)
}
