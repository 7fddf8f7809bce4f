// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// MockStore implements Store with in-memory fixed-window semantics
type MockStore struct {
	mu sync.Mutex

	counts  map[string]int
	windows map[string]time.Time

	incrErr error
}

func NewMockStore() *MockStore {
	return &MockStore{
		counts:  make(map[string]int),
		windows: make(map[string]time.Time),
	}
}

func (m *MockStore) IncrementWindow(ctx context.Context, userID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.incrErr != nil {
		return 0, m.incrErr
	}

	window := now.UTC().Truncate(time.Minute)
	if !m.windows[userID].Equal(window) {
		m.windows[userID] = window
		m.counts[userID] = 0
	}
	m.counts[userID]++
	return m.counts[userID], nil
}

func (m *MockStore) WindowStatus(ctx context.Context, userID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.windows[userID].Equal(now.UTC().Truncate(time.Minute)) {
		return 0, nil
	}
	return m.counts[userID], nil
}

func (m *MockStore) Ping(ctx context.Context) error { return nil }

func TestFixedWindowCeiling(t *testing.T) {
	store := NewMockStore()
	limiter := NewLimiter(store)

	base := time.Date(2025, 6, 1, 12, 30, 5, 0, time.UTC)
	limiter.nowFn = func() time.Time { return base }

	// ceiling requests in the same minute are allowed
	for i := 1; i <= 100; i++ {
		d, err := limiter.Allow(context.Background(), "user-1", 100)
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
	}

	// the 101st is rejected
	d, err := limiter.Allow(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("call 101 should be rejected")
	}

	// the next calendar minute resets the counter
	limiter.nowFn = func() time.Time { return base.Add(time.Minute) }
	d, err = limiter.Allow(context.Background(), "user-1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Count != 1 {
		t.Errorf("expected reset to count 1, got %+v", d)
	}
}

func TestFixedWindowDefaultCeiling(t *testing.T) {
	store := NewMockStore()
	limiter := NewLimiter(store)

	d, err := limiter.Allow(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Limit != DefaultRequestsPerMinute {
		t.Errorf("expected default ceiling %d, got %d", DefaultRequestsPerMinute, d.Limit)
	}
}

func TestFixedWindowStoreErrorFailsClosed(t *testing.T) {
	store := NewMockStore()
	store.incrErr = errors.New("db down")
	limiter := NewLimiter(store)

	if _, err := limiter.Allow(context.Background(), "user-1", 50); err == nil {
		t.Error("expected error when the store is unavailable")
	}
}

func TestRedisSlidingWindow(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()

	limiter := NewLimiterWithRedis(NewMockStore(), rdb)

	for i := 1; i <= 5; i++ {
		d, err := limiter.Allow(context.Background(), "user-1", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
	}

	d, err := limiter.Allow(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("6th call should exceed ceiling of 5")
	}
}

func TestRedisErrorFailsOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter := NewLimiterWithRedis(NewMockStore(), rdb)

	// Take Redis away
	srv.Close()

	d, err := limiter.Allow(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("redis failure must fail open")
	}
}

func TestStatusDoesNotRecordRequest(t *testing.T) {
	store := NewMockStore()
	limiter := NewLimiter(store)

	if _, err := limiter.Allow(context.Background(), "user-1", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, _, err := limiter.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	count, _, _ = limiter.Status(context.Background(), "user-1")
	if count != 1 {
		t.Errorf("status must not increment, got %d", count)
	}
}
