package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockDash/pkg/cache"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// TokenBucket is a per-key token bucket held in process memory.
type TokenBucket struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time
}

func NewTokenBucket(capacity, refillPerSec float64) *TokenBucket {
	return &TokenBucket{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		now:        time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Prune drops buckets that have been full for at least idle.
func (l *TokenBucket) Prune(idle time.Duration) int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, b := range l.m {
		refilled := b.tokens + now.Sub(b.last).Seconds()*l.refillRate
		if refilled >= l.capacity && now.Sub(b.last) >= idle {
			delete(l.m, k)
			n++
		}
	}
	return n
}

// Window allows at most limit requests per key in each fixed window. Counts
// live in a cache.Counter, so a Redis-backed counter shares the budget across
// replicas.
type Window struct {
	counter cache.Counter
	limit   int64
	window  time.Duration
}

func NewWindow(counter cache.Counter, limit int64, window time.Duration) *Window {
	return &Window{counter: counter, limit: limit, window: window}
}

func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	n, err := w.counter.IncrWindow(ctx, "ratelimit:"+key, w.window)
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return n <= w.limit, nil
}
