package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "glowfit:rate_limit:webhook"

// fixedWindowScript increments the counter and guarantees it carries a TTL,
// re-arming the expiry of keys left without one.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 or redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window counter shared by every instance pointing at
// the same Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a shared limiter. Non-positive values fall back to the defaults.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, win time.Duration) *RedisLimiter {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = defaultRedisPrefix
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win < time.Second {
		win = DefaultWindow
	}
	return &RedisLimiter{
		client: client,
		prefix: trimmedPrefix,
		limit:  limit,
		window: win,
	}
}

// Allow increments the key's counter, starting the window on the first hit.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil {
		return true, nil
	}

	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)
	count, err := fixedWindowScript.Run(ctx, r.client, []string{redisKey}, r.window.Milliseconds()).Int64()
	if err != nil {
		return true, fmt.Errorf("increment rate key: %w", err)
	}

	return count <= int64(r.limit), nil
}
