// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import "errors"

var (
	// ErrInvalidUserID is returned when the user ID is empty
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrInvalidSignature is returned when the transaction signature is empty
	ErrInvalidSignature = errors.New("invalid transaction signature")

	// ErrInvalidAmount is returned when the claimed amount is not positive
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrDuplicateTransaction is returned when a signature has already
	// been submitted; the payment is never credited twice
	ErrDuplicateTransaction = errors.New("transaction signature already processed")

	// ErrTransactionNotFound is returned when no payment row exists for
	// a signature
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotConfirmed is returned when the chain has no confirmed
	// transaction for the signature
	ErrNotConfirmed = errors.New("transaction not confirmed on chain")

	// ErrTransactionFailed is returned when the on-chain transaction
	// executed with an error
	ErrTransactionFailed = errors.New("on-chain transaction failed")

	// ErrTransferMismatch is returned when the confirmed transaction does
	// not move the claimed amount of the accepted token to the treasury
	ErrTransferMismatch = errors.New("transfer does not match claimed payment")

	// ErrPriceUnavailable is returned when the token spot price cannot
	// be fetched
	ErrPriceUnavailable = errors.New("token price unavailable")
)
