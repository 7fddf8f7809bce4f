// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the billing data access interface
type Repository interface {
	// InsertTransaction writes a new billing transaction row
	InsertTransaction(ctx context.Context, tx *Transaction) error

	// LatestTransaction returns the most recent transaction for a user.
	// Returns ErrTransactionNotFound when the user has none.
	LatestTransaction(ctx context.Context, userID string) (*Transaction, error)

	// MarkPaymentSuccessful flips payment_successful for an invoice
	MarkPaymentSuccessful(ctx context.Context, invoiceID string) error

	// MonthlyUsage sums total_cost of the user's API activity for the
	// calendar month containing month
	MonthlyUsage(ctx context.Context, userID string, month time.Time) (decimal.Decimal, error)

	// GetStripeCustomerID returns the user's Stripe customer ID.
	// Returns ErrCustomerNotFound when none is recorded.
	GetStripeCustomerID(ctx context.Context, userID string) (string, error)

	// SetStripeCustomerID records a newly created Stripe customer
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}
