package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/redis"
	"go.uber.org/zap"

	"github.com/glowfit/glowfit/app/controllers"
	"github.com/glowfit/glowfit/app/repository"
	"github.com/glowfit/glowfit/internal/pkg/apidocs"
	"github.com/glowfit/glowfit/internal/pkg/billing"
	"github.com/glowfit/glowfit/internal/pkg/cache"
	"github.com/glowfit/glowfit/internal/pkg/database"
	"github.com/glowfit/glowfit/internal/pkg/env"
	"github.com/glowfit/glowfit/internal/pkg/events"
	"github.com/glowfit/glowfit/internal/pkg/logger"
	"github.com/glowfit/glowfit/internal/pkg/metrics/counter"
	"github.com/glowfit/glowfit/internal/pkg/middleware"
	"github.com/glowfit/glowfit/internal/pkg/ratelimit"
	"github.com/glowfit/glowfit/internal/pkg/router"
)

func main() {
	app, cleanup := NewApplication()
	defer cleanup()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func NewApplication() (*fiber.App, func()) {
	foundEnv := env.SetupEnvFile()
	log := logger.Setup(env.GetEnv("LOG_LEVEL", "info"))
	if !foundEnv {
		log.Info("no .env file found, using process environment")
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	factory := repository.GetGlobalFactory()

	publisher, closePublisher := setupPublisher(log)
	svc := billing.NewService(
		factory.GetUserRepository(),
		factory.GetSubscriptionRepository(),
		billing.WithPublisher(publisher),
		billing.WithLogger(log),
	)

	limiter, adminStorage, responses := setupLimiters(log)

	docsFile := apidocs.Locate()
	if docsFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := apidocs.Load(ctx, docsFile); err != nil {
			log.Warn("openapi document rejected, docs disabled", zap.Error(err))
			docsFile = ""
		}
		cancel()
	}

	app := fiber.New(fiber.Config{
		AppName:      "glowfit",
		BodyLimit:    1 << 20,
		ErrorHandler: router.ErrorHandler,
	})

	// recovery, request ids and logging
	app.Use(recover.New(), middleware.RequestID(), fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency} ${locals:requestid}\n",
	}))

	router.InstallRouter(app, router.Dependencies{
		Webhook: controllers.HotmartWebhookConfig{
			Processor: svc,
			Limiter:   limiter,
			Secret: func() string {
				return env.GetEnv("HOTMART_WEBHOOK_SECRET", "")
			},
			Logger: log,
		},
		Lookup:            svc,
		Ping:              database.Ping,
		Counter:           responses,
		AdminUser:         env.GetEnv("ADMIN_USER", ""),
		AdminPasswordHash: env.GetEnv("ADMIN_PASSWORD_HASH", ""),
		AdminStorage:      adminStorage,
		DocsFile:          docsFile,
	})

	return app, func() {
		closePublisher()
		_ = log.Sync()
	}
}

func setupPublisher(log *zap.Logger) (events.Publisher, func()) {
	url := env.GetEnv("RABBITMQ_URL", "")
	if url == "" {
		return events.NopPublisher{}, func() {}
	}

	pub, err := events.NewAMQPPublisher(url, env.GetEnv("EVENTS_EXCHANGE", events.DefaultExchange))
	if err != nil {
		log.Warn("event broker unavailable, domain events disabled", zap.Error(err))
		return events.NopPublisher{}, func() {}
	}
	return pub, pub.Close
}

// setupLimiters picks the backend of the webhook limiter, the admin limiter
// storage and the response counters. The memory backend is per process.
func setupLimiters(log *zap.Logger) (ratelimit.Limiter, fiber.Storage, counter.Recorder) {
	limit := env.GetEnvInt("RATE_LIMIT_MAX", ratelimit.DefaultLimit)
	window := env.GetEnvDuration("RATE_LIMIT_WINDOW", ratelimit.DefaultWindow)

	if env.GetEnv("RATE_LIMIT_BACKEND", "memory") != "redis" {
		return ratelimit.NewMemoryLimiter(time.Now, limit, window), nil, counter.NewMemoryCounter()
	}

	client := cache.GetClient()
	host, port := "localhost", 6379
	if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	// Admin limiter counters live in database 1 (cache uses DB 0).
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1,
		Reset:    false,
	})

	log.Info("using redis rate limiter", zap.String("addr", client.Options().Addr))
	return ratelimit.NewRedisLimiter(client, "", limit, window), storage, counter.NewRedisCounter(client)
}
