package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultLimit  = 30

	// UnknownClient is the shared bucket for requests without a forwarded address.
	UnknownClient = "unknown"

	maxTrackedClients = 10000
)

// Limiter decides whether one more request from key fits the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter held in process memory. Instances do
// not share state, so the limit is per serving process only.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	limit   int
	window  time.Duration
	entries map[string]*window
}

// NewMemoryLimiter creates a limiter allowing limit requests per window and key.
// A nil now uses time.Now. Non-positive values fall back to the defaults.
func NewMemoryLimiter(now func() time.Time, limit int, win time.Duration) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &MemoryLimiter{
		now:     now,
		limit:   limit,
		window:  win,
		entries: make(map[string]*window),
	}
}

// Allow counts the request and reports whether it is within the limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		if !ok && len(l.entries) >= maxTrackedClients {
			l.pruneLocked(now)
		}
		l.entries[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	entry.count++
	return entry.count <= l.limit, nil
}

// pruneLocked drops windows that already elapsed.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
		}
	}
}

// Len returns the number of tracked clients.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ClientKey derives the limiter key from an X-Forwarded-For header value: the
// first comma separated entry, trimmed. Without one all callers share UnknownClient.
func ClientKey(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return UnknownClient
}
