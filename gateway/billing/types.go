// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceDueAfter is how long a customer has to pay a usage invoice
// before it counts as overdue.
const InvoiceDueAfter = 72 * time.Hour

// Transaction is one monthly billing cycle for an invoice-plan account.
// A row is written when the invoice is created and flipped to
// payment_successful once Stripe reports it paid.
type Transaction struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	TotalMonthlyCost  decimal.Decimal `json:"total_monthly_cost"`
	StripeCustomerID  string          `json:"stripe_customer_id"`
	InvoiceID         string          `json:"invoice_id"`
	PaymentSuccessful bool            `json:"payment_successful"`
	CreatedAt         time.Time       `json:"created_at"`
}

// UsageSummary is a user's aggregated API usage for one calendar month
type UsageSummary struct {
	UserID    string          `json:"user_id"`
	Month     string          `json:"month"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// PaymentMethod is the subset of Stripe payment method data the API exposes
type PaymentMethod struct {
	ID        string `json:"id"`
	Brand     string `json:"brand,omitempty"`
	Last4     string `json:"last4,omitempty"`
	ExpMonth  int64  `json:"exp_month,omitempty"`
	ExpYear   int64  `json:"exp_year,omitempty"`
	IsDefault bool   `json:"is_default"`
}

// monthBounds returns the half-open [start, end) range of the calendar
// month containing t, in UTC.
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
