// Package app assembles the HTTP application from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/clients"
	"foodorder/internal/config"
	"foodorder/internal/handlers"
	"foodorder/internal/logger"
	"foodorder/internal/metrics"
	"foodorder/internal/middleware"
	"foodorder/internal/pricing"
	"foodorder/internal/repositories"
	"foodorder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Options are the process level resources New wires together. Nil fields fall back to
// what the configuration selects.
type Options struct {
	Config   *config.Config
	DB       *gorm.DB // nil keeps everything in memory
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Notifier services.Notifier
	Catalog  services.CatalogService
	Payments services.PaymentGateway
}

// App is the assembled service.
type App struct {
	Fiber        *fiber.App
	Auth         *services.AuthService
	Menu         *services.MenuService
	Carts        *services.CartService
	Orders       *services.OrderService
	Orchestrator *services.Orchestrator
	Metrics      *metrics.Metrics
}

type repos struct {
	users  repositories.UserRepository
	menu   repositories.MenuItemRepository
	carts  repositories.CartRepository
	orders repositories.OrderRepository
}

func newRepos(db *gorm.DB) repos {
	if db == nil {
		return repos{
			users:  repositories.NewMockUserRepository(),
			menu:   repositories.NewMockMenuItemRepository(),
			carts:  repositories.NewMockCartRepository(),
			orders: repositories.NewMockOrderRepository(),
		}
	}
	return repos{
		users:  repositories.NewGORMUserRepository(db),
		menu:   repositories.NewGORMMenuItemRepository(db),
		carts:  repositories.NewGORMCartRepository(db),
		orders: repositories.NewGORMOrderRepository(db),
	}
}

// New builds the services and the Fiber app.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: configuration is required")
	}
	if !cfg.Pricing.TaxRate.Valid {
		return nil, apperr.ErrMissingTaxRate
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)
	r := newRepos(opts.DB)

	engine := pricing.NewEngine(cfg.Pricing)
	policy := services.UpstreamPolicy{
		Timeout: cfg.Upstream.Timeout,
		Backoff: cfg.Upstream.RetryBackoff,
		Metrics: m,
	}

	authService := services.NewAuthService(r.users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if cfg.Auth.AdminUsername != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to provision admin account: %w", err)
		}
	}
	menuService := services.NewMenuService(r.menu, cfg.Pricing.Currency)
	cartService := services.NewCartService(r.carts, engine, cfg.Cart.Conversion)
	orderService := services.NewOrderService(r.orders, engine)
	forwarder := services.NewAuthorizationForwarder(authService, policy)

	catalog := opts.Catalog
	if catalog == nil {
		if cfg.Upstream.CatalogURL != "" {
			catalog = clients.NewCatalogClient(cfg.Upstream.CatalogURL, cfg.Upstream.Timeout)
		} else {
			catalog = menuService
		}
	}
	payments := opts.Payments
	if payments == nil {
		if cfg.Upstream.PaymentURL != "" {
			payments = clients.NewPaymentClient(cfg.Upstream.PaymentURL, cfg.Upstream.Timeout)
		} else {
			payments = clients.SandboxGateway{}
		}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = clients.NewLogNotifier(log)
	}

	orch := services.NewOrchestrator(services.OrchestratorDeps{
		Forwarder: forwarder,
		Carts:     cartService,
		Orders:    orderService,
		Catalog:   catalog,
		Payments:  payments,
		Notifier:  notifier,
		Metrics:   m,
		Logger:    log,
	}, services.OrchestratorConfig{
		Upstream:         policy,
		NotifyTimeout:    cfg.Upstream.NotifyTimeout,
		VerifyCartPrices: cfg.Cart.VerifyPrices,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		IdempotencySize:  cfg.Idempotency.Size,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
	})
	app.Use(middleware.RequestID())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:request_id} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(forwarder)

	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1, auth)
	handlers.NewMenuHandler(menuService).RegisterRoutes(apiV1, auth)
	handlers.NewCartHandler(cartService, orch).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(orch).RegisterRoutes(apiV1)
	handlers.NewPaymentHandler(orch, cfg.Upstream.CallbackSecret).RegisterRoutes(apiV1)

	return &App{
		Fiber:        app,
		Auth:         authService,
		Menu:         menuService,
		Carts:        cartService,
		Orders:       orderService,
		Orchestrator: orch,
		Metrics:      m,
	}, nil
}
