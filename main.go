package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pesan/internal/config"
	"pesan/internal/database"
	"pesan/internal/handlers"
	"pesan/internal/logging"
	"pesan/internal/middleware"
	"pesan/internal/repositories"
	"pesan/internal/services"
	"pesan/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)
	logging.SetFallback(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	if cfg.SeedDemoData {
		if err := database.SeedDemoData(ctx, db, log); err != nil {
			return err
		}
	}

	// --- RabbitMQ (optional) ---
	var (
		mqClient  *rabbitmq.Client
		publisher services.EventPublisher
	)
	if cfg.EventsEnabled() {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Logger: log})
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Info("RABBITMQ_URL not set, order events are disabled")
	}

	app := newApp(db, services.NewTokenService(cfg.JWTSecret), publisher, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.AppPort, "db_driver", cfg.DBDriver)
		return app.Listen(cfg.AppPort)
	})
	if mqClient != nil {
		g.Go(func() error {
			return mqClient.ConsumeOrderEvents(gctx, logOrderEvent(log))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server gracefully stopped")
	return nil
}

// newApp wires repositories, services and handlers into a Fiber app.
func newApp(db *gorm.DB, tokens *services.TokenService, publisher services.EventPublisher, log *slog.Logger) *fiber.App {
	store := repositories.NewGORMStore(db)
	catalogService := services.NewCatalogService(repositories.NewGORMCatalogRepository(db))
	orderService := services.NewOrderService(store, catalogService, services.MockProvider{}, publisher)
	orderHandler := handlers.NewOrderHandler(orderService)

	app := fiber.New(fiber.Config{AppName: "pesan"})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(middleware.RequestLogger(log))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), db); err != nil {
			logging.FromContext(c.UserContext()).Error("health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unhealthy",
				"database": "down",
				"error":    err.Error(),
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"database": "up",
			"events":   publisher != nil,
			"time":     time.Now().Format(time.RFC3339),
		})
	})

	// --- API Routes (authenticated) ---
	apiV1 := app.Group("/api/v1", middleware.AuthRequired(tokens), middleware.ResolveScope())
	orderHandler.RegisterRoutes(apiV1)

	return app
}

// logOrderEvent is the consumer-side handler for order events.
func logOrderEvent(log *slog.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		log.Info("received order event", "routing_key", msg.RoutingKey, "body", string(msg.Body))
		return nil
	}
}
