package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodorder/internal/app"
	"foodorder/internal/apperr"
	"foodorder/internal/config"
	"foodorder/internal/logger"
	"foodorder/internal/repositories"
	"foodorder/internal/services"
	"foodorder/pkg/kafka"
	"foodorder/pkg/rabbitmq"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

const serviceName = "foodorder"

func main() {
	boot := logger.New(serviceName, "info")

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		boot.Error("config_load_failed", "", "Failed to load configuration", err, nil)
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server_failed", "", "Server stopped with an error", err, nil)
		os.Exit(1)
	}
	log.Info("server_stopped", "", "Server gracefully stopped", nil)
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// --- Database ---
	var db *gorm.DB
	if cfg.Database.Driver != "memory" {
		var err error
		db, err = repositories.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		log.Info("database_connected", "", "Database connected and migrated", map[string]any{"driver": cfg.Database.Driver})
	} else {
		log.Warn("database_in_memory", "", "Using in-memory repositories; data is lost on restart", nil, nil)
	}

	// --- Messaging ---
	var (
		notifier services.Notifier
		mq       *rabbitmq.Client
		closers  []io.Closer
	)
	switch cfg.Messaging.Notifier {
	case "amqp":
		client, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:          cfg.Messaging.RabbitMQURL,
			PaymentQueue: cfg.Messaging.PaymentQueue,
		}, log)
		if err != nil {
			return err
		}
		mq = client
		notifier = client
		closers = append(closers, client)
	case "kafka":
		publisher, err := kafka.NewPublisher(cfg.Messaging.KafkaBrokers, cfg.Messaging.KafkaTopic)
		if err != nil {
			return err
		}
		notifier = publisher
		closers = append(closers, publisher)
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Warn("close_failed", "", "Failed to close messaging client", err, nil)
			}
		}
	}()

	// --- Application ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(app.Options{
		Config:   cfg,
		DB:       db,
		Logger:   log,
		Registry: reg,
		Notifier: notifier,
	})
	if err != nil {
		return err
	}

	workers, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// --- Payment results consumer ---
	if mq != nil {
		go func() {
			if err := mq.ConsumePaymentResults(workers, paymentResultHandler(a.Orchestrator)); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment_consumer_failed", "", "Payment result consumer stopped", err, nil)
			}
		}()
	}

	// --- Stale cart sweeper ---
	go sweepCarts(workers, a.Carts, cfg.Cart, log)

	// --- HTTP server ---
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server_starting", "", "Starting server", map[string]any{"port": cfg.AppPort})
		serverErr <- a.Fiber.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("server_shutting_down", "", "Shutting down server", nil)
	cancelWorkers()
	if err := a.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("shutdown_failed", "", "Error during Fiber shutdown", err, nil)
	}
	a.Orchestrator.Wait()
	return nil
}

// paymentResultHandler feeds queued gateway results into the orchestrator. Results that
// can never apply are dropped instead of requeued.
func paymentResultHandler(orch *services.Orchestrator) rabbitmq.PaymentResultHandler {
	return func(ctx context.Context, r rabbitmq.PaymentResult) error {
		_, err := orch.RecordPaymentCallback(ctx, r.OrderID, r.Status, r.GatewayRef)
		if err == nil {
			return nil
		}
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Retryable() {
			return err
		}
		return rabbitmq.Permanent(err)
	}
}

func sweepCarts(ctx context.Context, carts *services.CartService, cfg config.CartConfig, log *logger.Logger) {
	if cfg.SweepInterval <= 0 || cfg.MaxAge <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := carts.Sweep(ctx, cfg.MaxAge)
			if err != nil {
				log.Warn("cart_sweep_failed", "", "Stale cart sweep failed", err, nil)
				continue
			}
			if removed > 0 {
				log.Info("cart_sweep", "", "Removed stale carts", map[string]any{"removed": removed})
			}
		}
	}
}
