package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bazaar/internal/cache"
	"bazaar/internal/config"
	"bazaar/internal/handlers"
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/payment"
	"bazaar/internal/pricing"
	"bazaar/internal/repositories"
	"bazaar/internal/services"
	"bazaar/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// App is the assembled service: the fiber app plus every resource it owns.
type App struct {
	Fiber   *fiber.App
	Service *services.OrderService
	Users   repositories.UserRepository

	closers []func() error
}

// NewApp constructs every collaborator from cfg and wires the HTTP routes.
// Redis and RabbitMQ are optional; without them idempotency and status
// caching stay in memory and no events are published.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// --- Order Store ---
	orderDB, err := openGORM(cfg.OrderDBDriver, cfg.OrderDBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open order database: %w", err)
	}
	a.addDBCloser(orderDB)
	if err := orderDB.AutoMigrate(&models.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate order database: %w", err)
	}
	orderRepo := repositories.NewGORMOrderRepository(orderDB)

	// --- User Order Mirror ---
	userRepo, err := a.openUserRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Users = userRepo

	// --- Outbound collaborators ---
	httpClient := &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	productRepo := repositories.NewHTTPProductRepository(cfg.CatalogBaseURL, httpClient, cfg.OutboundTimeout)
	gateway, err := payment.New(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	deps := services.Dependencies{
		Orders:   orderRepo,
		Products: productRepo,
		Users:    userRepo,
		Gateway:  gateway,
	}

	// --- Idempotency and status cache ---
	redisStatus := "disabled"
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		deps.Idempotency = cache.NewRedisIdempotencyStore(rdb, cfg.IdempotencyTTL)
		deps.Statuses = cache.NewRedisStatusCache(rdb, cfg.StatusCacheTTL)
		redisStatus = "connected"
	} else {
		deps.Idempotency = cache.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
		deps.Statuses = cache.NewMemoryStatusCache(cfg.StatusCacheTTL)
	}

	// --- Events ---
	var mqClient *rabbitmq.Client
	mqStatus := "disabled"
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, order events disabled")
			mqStatus = "unavailable"
		} else {
			a.closers = append(a.closers, mqClient.Close)
			deps.Events = mqClient
			mqStatus = "connected"
		}
	}

	svc := services.NewOrderService(deps, services.Settings{
		Charges: pricing.ChargeConfig{
			Delivery:       cfg.DeliveryCharge,
			Handling:       cfg.HandlingCharge,
			Platform:       cfg.PlatformCharge,
			GSTRate:        cfg.GSTRate,
			MinOrderAmount: cfg.MinOrderAmount,
		},
		CODMaxAmount:  cfg.CODMaxAmount,
		Location:      loc,
		MirrorTimeout: cfg.MirrorTimeout,
	})
	a.Service = svc

	if mqClient != nil {
		if err := mqClient.ConsumeMirrorRetries(context.WithoutCancel(ctx), svc.RetryMirror); err != nil {
			log.Warn().Err(err).Msg("failed to start mirror retry consumer")
		}
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{AppName: "bazaar-orders"})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Metrics())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"gateway":  gateway.Name(),
			"redis":    redisStatus,
			"rabbitmq": mqStatus,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	orderHandler := handlers.NewOrderHandler(svc)
	paymentHandler := handlers.NewPaymentHandler(svc)
	orderHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)
	orderHandler.RegisterReadRoutes(api)

	a.Fiber = app
	ok = true
	return a, nil
}

func (a *App) openUserRepository(ctx context.Context, cfg *config.Config) (repositories.UserRepository, error) {
	if cfg.UserDBDriver == "mongo" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.UserDBDSN))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to users database: %w", err)
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		if err := client.Ping(connectCtx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping users database: %w", err)
		}
		return repositories.NewMongoUserRepository(client.Database(cfg.UserDBName)), nil
	}

	userDB, err := openGORM(cfg.UserDBDriver, cfg.UserDBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open users database: %w", err)
	}
	a.addDBCloser(userDB)
	if err := userDB.AutoMigrate(&models.UserProfile{}, &models.UserOrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users database: %w", err)
	}
	return repositories.NewGORMUserRepository(userDB), nil
}

func openGORM(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

func (a *App) addDBCloser(db *gorm.DB) {
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
