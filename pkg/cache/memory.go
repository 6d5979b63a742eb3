package cache

import (
	"context"
	"sync"
	"time"
)

var _ Counter = (*MemoryCache)(nil)

type memoryCounter struct {
	value    int64
	expireAt time.Time
}

func (m *memoryCounter) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Counter in process memory. When full, the counter
// closest to expiry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryCounter
	maxSize int
	now     func() time.Time

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         10000,
		CleanupInterval: time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryCounter),
		maxSize: cfg.MaxSize,
		now:     time.Now,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	item, ok := mc.data[key]
	if !ok || item.expired(now) {
		if !ok && len(mc.data) >= mc.maxSize {
			mc.evictLocked(now)
		}
		item = &memoryCounter{expireAt: now.Add(window)}
		mc.data[key] = item
	}
	item.value++
	return item.value, nil
}

func (mc *MemoryCache) Get(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.data[key]
	if !ok || item.expired(mc.now()) {
		return 0, ErrCacheMiss
	}
	return item.value, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) evictLocked(now time.Time) {
	var (
		victim string
		soon   time.Time
	)
	for key, item := range mc.data {
		if item.expired(now) {
			delete(mc.data, key)
			return
		}
		if victim == "" || item.expireAt.Before(soon) {
			victim, soon = key, item.expireAt
		}
	}
	if victim != "" {
		delete(mc.data, victim)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}
