package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/glowfit/glowfit/internal/pkg/env"
	"github.com/glowfit/glowfit/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var client *redis.Client

// SetupCache initializes the connection to the Redis server used for shared
// rate limit counters.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr:     Addr(),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		logger.L().Warn("could not connect to cache", zap.String("addr", Addr()), zap.Error(err))
	} else {
		logger.L().Info("connected to cache", zap.String("addr", Addr()), zap.String("reply", pong))
	}
}

// Addr returns host:port of the configured cache.
func Addr() string {
	return fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379"))
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}
