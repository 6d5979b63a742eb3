package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockDash/pkg/cache"
)

func TestTokenBucket(t *testing.T) {
	l := NewTokenBucket(2, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "a"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	if ok, _ := l.Allow(ctx, "a"); ok {
		t.Fatal("bucket should be empty")
	}
	if ok, _ := l.Allow(ctx, "b"); !ok {
		t.Fatal("keys are independent")
	}

	now = now.Add(time.Second)
	if ok, _ := l.Allow(ctx, "a"); !ok {
		t.Fatal("one token should have refilled")
	}
}

func TestTokenBucketPrune(t *testing.T) {
	l := NewTokenBucket(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	if n := l.Prune(time.Minute); n != 0 {
		t.Fatalf("fresh bucket pruned")
	}
	now = now.Add(2 * time.Minute)
	if n := l.Prune(time.Minute); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
}

func TestWindow(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	w := NewWindow(mc, 2, time.Minute)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := w.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if ok != want {
			t.Fatalf("request %d: want %v got %v", i, want, ok)
		}
	}
}

type brokenCounter struct{}

func (brokenCounter) IncrWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("down")
}
func (brokenCounter) Get(context.Context, string) (int64, error) { return 0, cache.ErrCacheMiss }
func (brokenCounter) Delete(context.Context, ...string) error   { return nil }
func (brokenCounter) Close() error                              { return nil }

func TestWindowCounterError(t *testing.T) {
	w := NewWindow(brokenCounter{}, 1, time.Minute)
	if _, err := w.Allow(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}
