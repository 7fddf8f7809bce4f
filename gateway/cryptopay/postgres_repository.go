// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PostgresRepository implements Repository using PostgreSQL. Rows live
// in swarms_cloud_crypto_transactions with a UNIQUE constraint on
// signature; the constraint is what enforces exactly-once crediting.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL crypto payment repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertPending claims a signature by writing a pending row
func (r *PostgresRepository) InsertPending(ctx context.Context, userID, signature string, amountTokens decimal.Decimal) (*Transaction, error) {
	now := time.Now().UTC()
	tx := &Transaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		Signature:    signature,
		AmountTokens: amountTokens,
		AmountUSD:    decimal.Zero,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO swarms_cloud_crypto_transactions
			(id, user_id, signature, amount_tokens, amount_usd, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Signature, tx.AmountTokens.String(),
		tx.AmountUSD.String(), string(tx.Status), tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("failed to insert crypto transaction: %w", err)
	}
	return tx, nil
}

// MarkCredited records the USD value and flips the row to credited
func (r *PostgresRepository) MarkCredited(ctx context.Context, signature string, amountUSD decimal.Decimal) error {
	query := `
		UPDATE swarms_cloud_crypto_transactions
		SET status = $2, amount_usd = $3, updated_at = NOW()
		WHERE signature = $1
	`

	if _, err := r.db.ExecContext(ctx, query, signature, string(StatusCredited), amountUSD.String()); err != nil {
		return fmt.Errorf("failed to mark transaction credited: %w", err)
	}
	return nil
}

// MarkFailed records why verification failed
func (r *PostgresRepository) MarkFailed(ctx context.Context, signature, reason string) error {
	query := `
		UPDATE swarms_cloud_crypto_transactions
		SET status = $2, fail_reason = $3, updated_at = NOW()
		WHERE signature = $1
	`

	if _, err := r.db.ExecContext(ctx, query, signature, string(StatusFailed), reason); err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	return nil
}

// GetBySignature returns the payment row for a signature
func (r *PostgresRepository) GetBySignature(ctx context.Context, signature string) (*Transaction, error) {
	query := `
		SELECT id, user_id, signature, amount_tokens, amount_usd, status, COALESCE(fail_reason, ''), created_at, updated_at
		FROM swarms_cloud_crypto_transactions
		WHERE signature = $1
	`

	var tx Transaction
	var tokens, usd, status string
	err := r.db.QueryRowContext(ctx, query, signature).Scan(
		&tx.ID, &tx.UserID, &tx.Signature, &tokens, &usd, &status,
		&tx.FailReason, &tx.CreatedAt, &tx.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto transaction: %w", err)
	}

	tx.Status = Status(status)
	if tx.AmountTokens, err = decimal.NewFromString(tokens); err != nil {
		return nil, fmt.Errorf("failed to parse token amount: %w", err)
	}
	if tx.AmountUSD, err = decimal.NewFromString(usd); err != nil {
		return nil, fmt.Errorf("failed to parse usd amount: %w", err)
	}
	return &tx, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
