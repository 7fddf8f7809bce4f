// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostgresRepository implements Repository using PostgreSQL.
// Transactions live in swarm_cloud_billing_transcations; the table name
// carries a historical typo that existing deployments depend on.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL billing repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertTransaction writes a new billing transaction row
func (r *PostgresRepository) InsertTransaction(ctx context.Context, tx *Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO swarm_cloud_billing_transcations
			(id, user_id, total_montly_cost, stripe_customer_id, invoice_id, payment_successful, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.TotalMonthlyCost.String(), tx.StripeCustomerID,
		tx.InvoiceID, tx.PaymentSuccessful, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert billing transaction: %w", err)
	}
	return nil
}

// LatestTransaction returns the most recent transaction for a user
func (r *PostgresRepository) LatestTransaction(ctx context.Context, userID string) (*Transaction, error) {
	query := `
		SELECT id, user_id, total_montly_cost, stripe_customer_id, invoice_id, payment_successful, created_at
		FROM swarm_cloud_billing_transcations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var tx Transaction
	var cost string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&tx.ID, &tx.UserID, &cost, &tx.StripeCustomerID,
		&tx.InvoiceID, &tx.PaymentSuccessful, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest billing transaction: %w", err)
	}

	tx.TotalMonthlyCost, err = decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction cost: %w", err)
	}
	return &tx, nil
}

// MarkPaymentSuccessful flips payment_successful for an invoice
func (r *PostgresRepository) MarkPaymentSuccessful(ctx context.Context, invoiceID string) error {
	query := `
		UPDATE swarm_cloud_billing_transcations
		SET payment_successful = TRUE
		WHERE invoice_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, invoiceID); err != nil {
		return fmt.Errorf("failed to mark payment successful: %w", err)
	}
	return nil
}

// MonthlyUsage sums total_cost over swarms_cloud_api_activities for the
// calendar month containing month
func (r *PostgresRepository) MonthlyUsage(ctx context.Context, userID string, month time.Time) (decimal.Decimal, error) {
	start, end := monthBounds(month)

	query := `
		SELECT COALESCE(SUM(total_cost), 0)
		FROM swarms_cloud_api_activities
		WHERE user_id = $1
		  AND created_at >= $2
		  AND created_at < $3
	`

	var total string
	if err := r.db.QueryRowContext(ctx, query, userID, start, end).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum monthly usage: %w", err)
	}

	sum, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse monthly usage: %w", err)
	}
	return sum, nil
}

// GetStripeCustomerID returns the user's Stripe customer ID
func (r *PostgresRepository) GetStripeCustomerID(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT stripe_customer_id
		FROM users
		WHERE id = $1 AND stripe_customer_id IS NOT NULL
	`

	var customerID string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&customerID)
	if err == sql.ErrNoRows {
		return "", ErrCustomerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get stripe customer: %w", err)
	}
	return customerID, nil
}

// SetStripeCustomerID records a newly created Stripe customer
func (r *PostgresRepository) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	query := `
		UPDATE users
		SET stripe_customer_id = $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, userID, customerID); err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
