// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a crypto payment
type Status string

const (
	// StatusPending means the signature is claimed but not yet verified
	StatusPending Status = "pending"
	// StatusCredited means the payment was verified and credit granted
	StatusCredited Status = "credited"
	// StatusFailed means verification failed; the row keeps the
	// signature reserved until an operator resolves it
	StatusFailed Status = "failed"
)

// Transaction is one on-chain payment attempt, keyed by its Solana
// transaction signature. The signature is unique: claiming it up front
// is what makes crediting idempotent.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Signature    string          `json:"signature"`
	AmountTokens decimal.Decimal `json:"amount_tokens"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	Status       Status          `json:"status"`
	FailReason   string          `json:"fail_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Config holds the on-chain parameters a deployment accepts payment on
type Config struct {
	// TokenMint is the SPL mint address of the accepted token
	TokenMint string
	// TreasuryAddress is the wallet that must receive the transfer
	TreasuryAddress string
}
