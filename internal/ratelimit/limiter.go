// Package ratelimit implements sliding-window request limits keyed by string.
//
// MemoryLimiter keeps state in the process, so limits are per instance. Multi-instance
// deployments must use RedisLimiter to share the window across replicas.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// Rule is a named limit applied by callers.
type Rule struct {
	Max    int
	Window time.Duration
}

var (
	Checkout = Rule{Max: 5, Window: time.Minute}
	Payment  = Rule{Max: 3, Window: time.Minute}
)

// Check applies rule to key and converts a denial into ErrLimitExceeded.
func Check(ctx context.Context, l Limiter, key string, rule Rule) error {
	ok, err := l.Allow(ctx, key, rule.Max, rule.Window)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLimitExceeded
	}
	return nil
}

type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string][]time.Time), now: time.Now}
}

// Allow records a hit only when it is allowed.
func (l *MemoryLimiter) Allow(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.hits[key], now.Add(-window))

	if len(recent) >= max {
		l.hits[key] = recent
		return false, nil
	}

	l.hits[key] = append(recent, now)
	return true, nil
}

// Sweep drops keys whose newest hit is older than window.
func (l *MemoryLimiter) Sweep(window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	for k, ts := range l.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.hits, k)
		}
	}
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
