package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elebur/VoteAPI/internal/reliability/circuitbreaker"
)

func TestLimiterSlidingWindow(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	defer l.Stop()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.2"), "keys are independent")
	assert.True(t, l.Allow(ctx, ""), "anonymous key is never limited")

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow(ctx, "10.0.0.1"))
}

func TestAllowStrictSeparateBucket(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	assert.True(t, l.AllowStrict("alice", 1, time.Minute))
	assert.False(t, l.AllowStrict("alice", 1, time.Minute))
	assert.True(t, l.Allow(context.Background(), "alice"))
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

type countingAllower struct{ calls int }

func (c *countingAllower) Allow(context.Context, string) bool {
	c.calls++
	return true
}

func TestRedisLimiterCountsPerWindow(t *testing.T) {
	counter := &fakeCounter{}
	fallback := &countingAllower{}
	l := NewRedisLimiter(counter, fallback, circuitbreaker.New(3, 1, time.Minute), 2, time.Minute, nil)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "u:1"))
	assert.True(t, l.Allow(ctx, "u:1"))
	assert.False(t, l.Allow(ctx, "u:1"))
	assert.Zero(t, fallback.calls)
}

func TestRedisLimiterFallsBackWhenRedisFails(t *testing.T) {
	counter := &fakeCounter{err: errors.New("connection refused")}
	fallback := &countingAllower{}
	breaker := circuitbreaker.New(2, 1, time.Minute)
	l := NewRedisLimiter(counter, fallback, breaker, 5, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		assert.True(t, l.Allow(ctx, "ip:1"))
	}
	assert.Equal(t, 4, fallback.calls)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}
