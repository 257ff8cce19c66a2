package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_BlocksAfterLimit(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	l := NewRedisLimiter(client, "test:rl", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "203.0.113.9")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := l.Allow(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "198.51.100.4")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists("test:rl:203.0.113.9"))
	assert.Greater(t, mr.TTL("test:rl:203.0.113.9"), time.Duration(0))

	mr.FastForward(61 * time.Second)

	ok, err = l.Allow(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_RepairsKeyWithoutTTL(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	l := NewRedisLimiter(client, "test:rl", DefaultLimit, DefaultWindow)
	ctx := context.Background()

	// counter left behind without an expiry
	require.NoError(t, client.Incr(ctx, "test:rl:203.0.113.9").Err())
	require.Equal(t, time.Duration(0), mr.TTL("test:rl:203.0.113.9"))

	for i := 2; i <= DefaultLimit; i++ {
		ok, err := l.Allow(ctx, "203.0.113.9")
		require.NoError(t, err)
		require.True(t, ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl := mr.TTL("test:rl:203.0.113.9")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, DefaultWindow)

	mr.FastForward(DefaultWindow + time.Second)

	ok, err = l.Allow(ctx, "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_ErrorFailsOpen(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	l := NewRedisLimiter(client, "", 1, time.Minute)
	mr.Close()

	ok, err := l.Allow(context.Background(), "x")
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestNewRedisLimiter_Defaults(t *testing.T) {
	l := NewRedisLimiter(nil, " custom: ", 0, time.Millisecond)
	assert.Equal(t, "custom", l.prefix)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)

	ok, err := l.Allow(context.Background(), "x")
	assert.NoError(t, err)
	assert.True(t, ok)
}
