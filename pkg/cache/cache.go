package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Counter is a shared store of expiring integer counters. The first
// increment of a key starts its window; the key disappears when the window
// ends.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
