// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import "errors"

var (
	// ErrInvalidUserID is returned when the user ID is empty
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrInvalidAmount is returned when an invoice amount is not positive
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidInvoiceID is returned when the invoice ID is empty
	ErrInvalidInvoiceID = errors.New("invalid invoice ID")

	// ErrCustomerNotFound is returned when a user has no Stripe customer
	ErrCustomerNotFound = errors.New("stripe customer not found")

	// ErrTransactionNotFound is returned when a user has no billing transactions
	ErrTransactionNotFound = errors.New("billing transaction not found")

	// ErrNoPaymentMethod is returned when an automatic charge is attempted
	// without a default payment method on file
	ErrNoPaymentMethod = errors.New("no default payment method")
)
