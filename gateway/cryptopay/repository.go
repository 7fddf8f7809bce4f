// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the crypto payment data access interface
type Repository interface {
	// InsertPending claims a signature by writing a pending row.
	// Returns ErrDuplicateTransaction when the signature already exists.
	InsertPending(ctx context.Context, userID, signature string, amountTokens decimal.Decimal) (*Transaction, error)

	// MarkCredited records the USD value and flips the row to credited
	MarkCredited(ctx context.Context, signature string, amountUSD decimal.Decimal) error

	// MarkFailed records why verification failed, keeping the signature
	// reserved for operator review
	MarkFailed(ctx context.Context, signature, reason string) error

	// GetBySignature returns the payment row for a signature.
	// Returns ErrTransactionNotFound when none exists.
	GetBySignature(ctx context.Context, signature string) (*Transaction, error)

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}
