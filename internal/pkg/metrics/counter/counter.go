package counter

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const webhookResponsesKey = "webhook:counters:responses"

// Recorder counts webhook responses by label, usually the HTTP status code.
type Recorder interface {
	Add(ctx context.Context, label string) error
	Snapshot(ctx context.Context) (map[string]int64, error)
}

// RedisCounter keeps the counters in a Redis hash so every instance reports
// into the same totals.
type RedisCounter struct {
	client redis.UniversalClient
	key    string
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client, key: webhookResponsesKey}
}

// Add increments the counter for label in Redis
func (r *RedisCounter) Add(ctx context.Context, label string) error {
	return r.client.HIncrBy(ctx, r.key, label, 1).Err()
}

// Snapshot returns all counters. Fields that do not parse are skipped.
func (r *RedisCounter) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

// MemoryCounter is the per-process fallback when no Redis is configured.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (m *MemoryCounter) Add(_ context.Context, label string) error {
	m.mu.Lock()
	m.counts[label]++
	m.mu.Unlock()
	return nil
}

func (m *MemoryCounter) Snapshot(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

// StatusLabel is the label used for an HTTP status code.
func StatusLabel(status int) string {
	return strconv.Itoa(status)
}
