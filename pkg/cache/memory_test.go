package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryIncrWindow(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		got, err := mc.IncrWindow(ctx, "ip", time.Second)
		if err != nil || got != i {
			t.Fatalf("incr %d: got %d err %v", i, got, err)
		}
	}

	now = now.Add(2 * time.Second)
	if _, err := mc.Get(ctx, "ip"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after window, got %v", err)
	}
	if got, _ := mc.IncrWindow(ctx, "ip", time.Second); got != 1 {
		t.Fatalf("expected new window to restart at 1, got %d", got)
	}
}

func TestMemoryEvictsWhenFull(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_, _ = mc.IncrWindow(ctx, "a", time.Second)
	_, _ = mc.IncrWindow(ctx, "b", time.Minute)
	_, _ = mc.IncrWindow(ctx, "c", time.Minute)

	if mc.Len() != 2 {
		t.Fatalf("expected 2 live counters, got %d", mc.Len())
	}
	if _, err := mc.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected soonest-expiring key evicted")
	}
}

func TestMemoryDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_, _ = mc.IncrWindow(ctx, "k", time.Minute)
	if err := mc.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mc.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete")
	}
	if err := mc.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
