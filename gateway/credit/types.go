// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

// Package credit implements the user credit ledger: paid and
// promotional balances, plan-aware eligibility checks, and atomic
// deduction of API usage cost.
package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan governs how usage cost is settled for an account
type Plan string

const (
	// PlanDefault is pay-as-you-go: usage is debited from the balance
	// immediately and requests are blocked once the balance is gone.
	PlanDefault Plan = "default"
	// PlanInvoice accumulates usage and bills it at month end. Balance
	// never gates requests on this plan.
	PlanInvoice Plan = "invoice"
)

// Balance is the credit state of one account
type Balance struct {
	UserID     string          `json:"user_id"`
	Credit     decimal.Decimal `json:"credit"`
	FreeCredit decimal.Decimal `json:"free_credit"`
	Plan       Plan            `json:"credit_plan"`
	UpdatedAt  time.Time       `json:"updated_at,omitempty"`
}

// Remaining returns the total spendable balance
func (b *Balance) Remaining() decimal.Decimal {
	return b.Credit.Add(b.FreeCredit)
}

// Deduction describes the outcome of one usage-cost deduction
type Deduction struct {
	UserID     string          `json:"user_id"`
	Cost       decimal.Decimal `json:"cost"`
	FromFree   decimal.Decimal `json:"from_free"`
	FromPaid   decimal.Decimal `json:"from_paid"`
	Credit     decimal.Decimal `json:"credit"`
	FreeCredit decimal.Decimal `json:"free_credit"`
}

// CheckResult is the outcome of an eligibility check
type CheckResult struct {
	Allowed   bool            `json:"allowed"`
	Remaining decimal.Decimal `json:"remaining_credits"`
	Plan      Plan            `json:"credit_plan"`
	Status    int             `json:"status"`
	Message   string          `json:"message"`
}

// NewBalance creates an empty balance on the pay-as-you-go plan
func NewBalance(userID string) *Balance {
	return &Balance{
		UserID:     userID,
		Credit:     decimal.Zero,
		FreeCredit: decimal.Zero,
		Plan:       PlanDefault,
	}
}

func isValidPlan(p Plan) bool {
	switch p {
	case PlanDefault, PlanInvoice:
		return true
	}
	return false
}
