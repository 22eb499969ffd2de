package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter()
	l.now = clock.now
	return l, clock
}

func TestAllowWithinWindow(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "k", 5, time.Minute)
		if err != nil || !ok {
			t.Fatalf("Call %d: expected allow, got %v, %v", i+1, ok, err)
		}
		clock.t = clock.t.Add(time.Second)
	}

	if ok, _ := l.Allow(ctx, "k", 5, time.Minute); ok {
		t.Error("6th call within the window must be denied")
	}

	clock.t = clock.t.Add(time.Minute)
	if ok, _ := l.Allow(ctx, "k", 5, time.Minute); !ok {
		t.Error("Call after the window elapsed must be allowed")
	}
}

func TestDeniedCallsAreNotRecorded(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		_, _ = l.Allow(ctx, "k", 3, time.Minute)
	}
	for i := 0; i < 10; i++ {
		clock.t = clock.t.Add(time.Second)
		_, _ = l.Allow(ctx, "k", 3, time.Minute)
	}

	// the three allowed hits expire 60s after they were made; denials must not extend that
	clock.t = clock.t.Add(50*time.Second + time.Millisecond)
	if ok, _ := l.Allow(ctx, "k", 3, time.Minute); !ok {
		t.Error("Denied calls must not keep the window full")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter()

	_, _ = l.Allow(ctx, "checkout-1", 1, time.Minute)
	if ok, _ := l.Allow(ctx, "checkout-2", 1, time.Minute); !ok {
		t.Error("Different keys must not share a window")
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter()

	rule := Rule{Max: 1, Window: time.Minute}
	if err := Check(ctx, l, "k", rule); err != nil {
		t.Fatalf("First Check failed: %v", err)
	}
	if err := Check(ctx, l, "k", rule); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("Expected ErrLimitExceeded, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	_, _ = l.Allow(ctx, "old", 5, time.Minute)
	clock.t = clock.t.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "fresh", 5, time.Minute)

	l.Sweep(time.Minute)

	if _, ok := l.hits["old"]; ok {
		t.Error("Expected stale key to be swept")
	}
	if _, ok := l.hits["fresh"]; !ok {
		t.Error("Expected fresh key to survive")
	}
}
