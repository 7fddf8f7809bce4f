// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"swarms/platform/shared/logger"
)

// Limiter enforces the per-user requests-per-minute ceiling. When a
// Redis client is configured it uses a sliding one-minute window;
// otherwise it falls back to the fixed calendar-minute counter in
// Postgres. Redis errors fail open; Postgres errors fail closed.
type Limiter struct {
	store Store
	rdb   *redis.Client
	log   *logger.Logger

	// nowFn is swappable in tests
	nowFn func() time.Time
}

// NewLimiter creates a limiter backed by the fixed-window store
func NewLimiter(store Store) *Limiter {
	return &Limiter{
		store: store,
		log:   logger.New("ratelimit"),
		nowFn: time.Now,
	}
}

// NewLimiterWithRedis creates a limiter that prefers the Redis sliding window
func NewLimiterWithRedis(store Store, rdb *redis.Client) *Limiter {
	l := NewLimiter(store)
	l.rdb = rdb
	return l
}

// Allow records one request for the user and reports whether it is
// within the ceiling. A ceiling of zero or less means the default.
func (l *Limiter) Allow(ctx context.Context, userID string, ceiling int) (*Decision, error) {
	if ceiling <= 0 {
		ceiling = DefaultRequestsPerMinute
	}

	now := l.nowFn()

	if l.rdb != nil {
		return l.allowRedis(ctx, userID, ceiling, now)
	}
	return l.allowFixedWindow(ctx, userID, ceiling, now)
}

func (l *Limiter) allowFixedWindow(ctx context.Context, userID string, ceiling int, now time.Time) (*Decision, error) {
	count, err := l.store.IncrementWindow(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	return &Decision{
		Allowed:   count <= ceiling,
		Count:     count,
		Limit:     ceiling,
		ResetTime: now.UTC().Truncate(time.Minute).Add(time.Minute),
	}, nil
}

// allowRedis implements a sliding one-minute window with a sorted set
// per user. The pipeline trims expired entries, counts the window, and
// records the current request in one round trip.
func (l *Limiter) allowRedis(ctx context.Context, userID string, ceiling int, now time.Time) (*Decision, error) {
	key := fmt.Sprintf("ratelimit:%s", userID)

	pipe := l.rdb.Pipeline()

	minScore := now.Add(-time.Minute).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", minScore))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		// Redis trouble must not take the API down
		l.log.Warn(userID, "", "redis rate limit check failed, failing open", map[string]interface{}{
			"error": err.Error(),
		})
		return &Decision{
			Allowed:   true,
			Limit:     ceiling,
			ResetTime: now.Add(time.Minute),
		}, nil
	}

	count := int(countCmd.Val()) + 1

	return &Decision{
		Allowed:   count <= ceiling,
		Count:     count,
		Limit:     ceiling,
		ResetTime: now.Add(time.Minute),
	}, nil
}

// Status reports the current window count without recording a request
func (l *Limiter) Status(ctx context.Context, userID string) (int, time.Time, error) {
	now := l.nowFn()

	if l.rdb != nil {
		key := fmt.Sprintf("ratelimit:%s", userID)
		minScore := now.Add(-time.Minute).UnixNano()
		count, err := l.rdb.ZCount(ctx, key, fmt.Sprintf("%d", minScore), "+inf").Result()
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to get rate limit status: %w", err)
		}
		return int(count), now.Add(time.Minute), nil
	}

	count, err := l.store.WindowStatus(ctx, userID, now)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, now.UTC().Truncate(time.Minute).Add(time.Minute), nil
}
