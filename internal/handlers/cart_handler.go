package handlers

import (
	"foodorder/internal/apperr"
	"foodorder/internal/middleware"
	"foodorder/internal/models"
	"foodorder/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	carts    *services.CartService
	orch     *services.Orchestrator
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler. The orchestrator prices added items from
// the catalog.
func NewCartHandler(carts *services.CartService, orch *services.Orchestrator) *CartHandler {
	return &CartHandler{
		carts:    carts,
		orch:     orch,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes. Every route needs auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	cartRoutes := router.Group("/cart", auth)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Put("/instructions", h.HandleSetInstructions)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:itemId", h.HandleSetQuantity)
	cartRoutes.Delete("/items/:itemId", h.HandleRemoveItem)
}

// AddCartItemRequest is the body of POST /cart/items.
type AddCartItemRequest struct {
	RestaurantID        string `json:"restaurant_id" validate:"required,max=64"`
	ItemID              string `json:"item_id" validate:"required,max=64"`
	Quantity            int    `json:"quantity" validate:"required,gte=1,lte=100"`
	Size                string `json:"size" validate:"omitempty,max=20"`
	SpecialInstructions string `json:"special_instructions" validate:"omitempty,max=500"`
}

func userID(c *fiber.Ctx) (string, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return "", apperr.Unauthenticated("authorization header is required")
	}
	return p.UserID, nil
}

// HandleGetCart returns the caller's cart with live totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	snap, err := h.carts.GetOrCreate(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// HandleAddItem prices the item from the catalog and adds it to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req AddCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	line, err := h.orch.QuoteItem(c.UserContext(), req.RestaurantID, models.LineItem{
		ItemID:              req.ItemID,
		Quantity:            req.Quantity,
		Size:                req.Size,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		return err
	}
	snap, err := h.carts.AddItem(c.UserContext(), uid, line)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(snap)
}

// HandleSetQuantity changes the quantity of a line; zero removes it.
func (h *CartHandler) HandleSetQuantity(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var body struct {
		Quantity int    `json:"quantity" validate:"gte=0,lte=100"`
		Size     string `json:"size" validate:"omitempty,max=20"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(body); err != nil {
		return validationFailed(c, err)
	}

	snap, err := h.carts.SetQuantity(c.UserContext(), uid, c.Params("itemId"), body.Size, body.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// HandleRemoveItem drops a line. The size is taken from the "size" query parameter.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	snap, err := h.carts.RemoveItem(c.UserContext(), uid, c.Params("itemId"), c.Query("size"))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	snap, err := h.carts.Clear(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// HandleSetInstructions stores instructions for the whole cart.
func (h *CartHandler) HandleSetInstructions(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var body struct {
		Instructions string `json:"instructions"`
	}
	if err := c.BodyParser(&body); err != nil {
		return invalidBody(c, err)
	}
	snap, err := h.carts.SetInstructions(c.UserContext(), uid, body.Instructions)
	if err != nil {
		return err
	}
	return c.JSON(snap)
}
