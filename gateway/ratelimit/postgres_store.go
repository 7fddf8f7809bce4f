// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore implements Store and ContentCounter using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// IncrementWindow bumps the per-user counter for the current calendar
// minute. The CASE keeps the increment and the window reset in one
// statement, so concurrent requests cannot lose counts.
func (s *PostgresStore) IncrementWindow(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		INSERT INTO swarms_cloud_rate_limits (user_id, request_count, last_request_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			request_count = CASE
				WHEN date_trunc('minute', swarms_cloud_rate_limits.last_request_at)
					= date_trunc('minute', $2::timestamptz)
				THEN swarms_cloud_rate_limits.request_count + 1
				ELSE 1
			END,
			last_request_at = $2
		RETURNING request_count
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, now.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit window: %w", err)
	}
	return count, nil
}

// WindowStatus returns the current count without incrementing
func (s *PostgresStore) WindowStatus(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		SELECT request_count, last_request_at
		FROM swarms_cloud_rate_limits
		WHERE user_id = $1
	`

	var count int
	var last time.Time
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&count, &last)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit status: %w", err)
	}

	// Counts from an earlier minute have logically expired
	if !last.UTC().Truncate(time.Minute).Equal(now.UTC().Truncate(time.Minute)) {
		return 0, nil
	}
	return count, nil
}

// CountPrompts counts prompt rows created by a user inside a time range
func (s *PostgresStore) CountPrompts(ctx context.Context, userID string, isFree bool, start, end time.Time) (int, error) {
	return s.countContent(ctx, "swarms_cloud_prompts", userID, isFree, start, end)
}

// CountAgents counts agent rows created by a user inside a time range
func (s *PostgresStore) CountAgents(ctx context.Context, userID string, isFree bool, start, end time.Time) (int, error) {
	return s.countContent(ctx, "swarms_cloud_agents", userID, isFree, start, end)
}

func (s *PostgresStore) countContent(ctx context.Context, table, userID string, isFree bool, start, end time.Time) (int, error) {
	// Table name comes from the two callers above, never from input
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE user_id = $1
		  AND is_free = $2
		  AND created_at >= $3
		  AND created_at <= $4
	`, table)

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, isFree, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
