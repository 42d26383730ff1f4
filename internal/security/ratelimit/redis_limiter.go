package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elebur/VoteAPI/internal/reliability/circuitbreaker"
)

// WindowCounter increments a counter that expires after window and returns its value.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter shares a fixed window limit across server replicas. While Redis is
// unreachable the breaker opens and the in-process fallback decides instead.
type RedisLimiter struct {
	counter  WindowCounter
	fallback Allower
	breaker  *circuitbreaker.Breaker
	maxReqs  int
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewRedisLimiter(counter WindowCounter, fallback Allower, breaker *circuitbreaker.Breaker, maxRequests int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		counter:  counter,
		fallback: fallback,
		breaker:  breaker,
		maxReqs:  maxRequests,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" || l.maxReqs <= 0 {
		return true
	}

	slot := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, slot)

	var count int64
	err := l.breaker.Execute(func() error {
		var err error
		count, err = l.counter.IncrWindow(ctx, redisKey, l.window)
		return err
	})
	if err != nil {
		l.logger.Debug("rate limiter falling back to local window",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return l.fallback.Allow(ctx, key)
	}
	return count <= int64(l.maxReqs)
}
