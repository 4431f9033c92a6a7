package handlers

import (
	"foodorder/internal/middleware"
	"foodorder/internal/models"
	"foodorder/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// MenuHandler handles HTTP requests for restaurant menus. Its read routes are also the
// catalog API that other order instances call.
type MenuHandler struct {
	service  *services.MenuService
	validate *validator.Validate
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(service *services.MenuService) *MenuHandler {
	return &MenuHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the menu routes. Reads are public; writes need auth and a
// restaurant or admin role.
func (h *MenuHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	menuRoutes := router.Group("/restaurants/:restaurantId/menu")
	menuRoutes.Get("/", h.HandleGetMenu)
	menuRoutes.Get("/:itemId", h.HandleGetMenuItem)

	staff := middleware.RequireRole(models.RoleRestaurant, models.RoleAdmin)
	menuRoutes.Post("/", auth, staff, h.HandleCreateMenuItem)
	menuRoutes.Put("/:itemId", auth, staff, h.HandleUpdateMenuItem)
	menuRoutes.Delete("/:itemId", auth, staff, h.HandleDeleteMenuItem)
}

// HandleGetMenu retrieves a restaurant's menu.
func (h *MenuHandler) HandleGetMenu(c *fiber.Ctx) error {
	menu, err := h.service.GetMenu(c.UserContext(), c.Params("restaurantId"))
	if err != nil {
		return err
	}
	return c.JSON(menu)
}

// HandleGetMenuItem retrieves a single menu item.
func (h *MenuHandler) HandleGetMenuItem(c *fiber.Ctx) error {
	item, err := h.service.GetItem(c.UserContext(), c.Params("restaurantId"), c.Params("itemId"))
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *MenuHandler) parseItem(c *fiber.Ctx) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.BodyParser(&item); err != nil {
		return nil, invalidBody(c, err)
	}
	item.ID = ""
	if err := h.validate.Struct(item); err != nil {
		return nil, validationFailed(c, err)
	}
	return &item, nil
}

// HandleCreateMenuItem adds an item to a restaurant's menu.
func (h *MenuHandler) HandleCreateMenuItem(c *fiber.Ctx) error {
	item, err := h.parseItem(c)
	if item == nil {
		return err
	}
	if err := h.service.CreateItem(c.UserContext(), c.Params("restaurantId"), item); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// HandleUpdateMenuItem replaces an existing menu item.
func (h *MenuHandler) HandleUpdateMenuItem(c *fiber.Ctx) error {
	item, err := h.parseItem(c)
	if item == nil {
		return err
	}
	item.ID = c.Params("itemId")
	if err := h.service.UpdateItem(c.UserContext(), c.Params("restaurantId"), item); err != nil {
		return err
	}
	return c.JSON(item)
}

// HandleDeleteMenuItem removes an item from a restaurant's menu.
func (h *MenuHandler) HandleDeleteMenuItem(c *fiber.Ctx) error {
	if err := h.service.DeleteItem(c.UserContext(), c.Params("restaurantId"), c.Params("itemId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
