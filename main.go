package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- Database ---
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	inventoryStore := repositories.NewGORMInventoryStore(db)
	orderStore := repositories.NewGORMOrderStore(db, inventoryStore)

	// --- Notification dispatcher ---
	// The mail worker is a separate process fed through RabbitMQ. A broker
	// outage at startup degrades to dropped notifications, never to a dead
	// order service.
	var notifier notifications.Notifier = notifications.NoopNotifier{}
	var mqClient *rabbitmq.Client
	if cfg.NotificationsEnabled {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			logger.Warn("RabbitMQ unavailable, order notifications disabled", slog.Any("error", err))
		} else {
			defer mqClient.Close()
			notifier = notifications.NewAMQPNotifier(mqClient)
		}
	}

	// --- Event sink ---
	bus := events.NewBus(logger)
	bus.Subscribe(func(e events.StatusChanged) {
		logger.Info("order status changed",
			slog.String("order_id", e.Order.ID),
			slog.String("previous_status", e.PreviousStatus.String()),
			slog.String("new_status", e.NewStatus.String()))
	})

	// --- Services and handlers ---
	orderService := services.NewOrderService(orderStore, productRepo, notifier, bus, cfg.Pricing, logger)
	orderHandler := handlers.NewOrderHandler(orderService, logger)

	// --- Fiber app ---
	app := fiber.New()
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	apiV1 := app.Group("/api/v1", middleware.ActorRequired(cfg.JWTSecret))
	orderHandler.RegisterRoutes(apiV1)

	// --- Local notification consumer ---
	// In development there is no separate mail worker; log deliveries so
	// the queue does not silently fill up.
	if mqClient != nil {
		if consumerErr := mqClient.Consume(logger, func(msg amqp.Delivery) error {
			logger.Info("order notification delivered", slog.String("body", string(msg.Body)))
			return nil
		}); consumerErr != nil {
			logger.Warn("failed to start notification consumer", slog.Any("error", consumerErr))
		}
	}

	// --- Start HTTP server with graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", slog.String("port", cfg.AppPort))
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		logger.Error("error during shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
