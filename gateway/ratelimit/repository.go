// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned by Limiter.Allow when the ceiling is reached
var ErrRateLimited = errors.New("rate limit exceeded")

// Store persists the per-user fixed-window counters
type Store interface {
	// IncrementWindow bumps the user's request counter and returns its
	// value within the current calendar-minute window. Counters from an
	// earlier minute are reset to 1. The bump is a single atomic upsert.
	IncrementWindow(ctx context.Context, userID string, now time.Time) (int, error)

	// WindowStatus returns the current count without incrementing
	WindowStatus(ctx context.Context, userID string, now time.Time) (int, error)

	// Ping checks store connectivity
	Ping(ctx context.Context) error
}

// ContentCounter counts marketplace rows created inside a time range.
// Backed by the prompts and agents tables.
type ContentCounter interface {
	CountPrompts(ctx context.Context, userID string, isFree bool, start, end time.Time) (int, error)
	CountAgents(ctx context.Context, userID string, isFree bool, start, end time.Time) (int, error)
}
