// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package credit

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for credit ledger persistence
type Repository interface {
	// GetBalance returns the balance row for a user. A missing row is
	// reported as a zero balance on the default plan, matching the
	// upsert-on-first-write lifecycle of the ledger.
	GetBalance(ctx context.Context, userID string) (*Balance, error)

	// Deduct atomically applies a usage cost: free credit is drained
	// first, the remainder comes out of paid credit. Paid credit has
	// no floor. The row is created if absent. Returns the balance
	// after the deduction.
	Deduct(ctx context.Context, userID string, cost decimal.Decimal) (*Balance, error)

	// AddCredit atomically increases the paid balance, creating the row if absent
	AddCredit(ctx context.Context, userID string, amount decimal.Decimal) (*Balance, error)

	// AddFreeCredit atomically increases the promotional balance
	AddFreeCredit(ctx context.Context, userID string, amount decimal.Decimal) (*Balance, error)

	// SetPlan switches the account between pay-as-you-go and invoice billing
	SetPlan(ctx context.Context, userID string, plan Plan) error

	// GetOrganizationOwner resolves an organization public ID to its owner's user ID
	GetOrganizationOwner(ctx context.Context, publicID string) (string, error)

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}
