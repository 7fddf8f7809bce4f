// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package credit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"swarms/platform/shared/logger"
)

// Service provides credit ledger operations: balance reads, plan-aware
// eligibility checks, and usage-cost deduction. When an organization
// public ID is supplied, all operations resolve to the organization
// owner's account.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a new credit service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		log:  logger.New("credit"),
	}
}

// resolveAccount maps (userID, orgPublicID) to the account that pays.
// Organization usage is billed to the organization owner.
func (s *Service) resolveAccount(ctx context.Context, userID, orgPublicID string) (string, error) {
	if orgPublicID == "" {
		if userID == "" {
			return "", ErrInvalidUserID
		}
		return userID, nil
	}

	ownerID, err := s.repo.GetOrganizationOwner(ctx, orgPublicID)
	if err != nil {
		return "", err
	}
	return ownerID, nil
}

// GetBalance returns the resolved account's balance
func (s *Service) GetBalance(ctx context.Context, userID, orgPublicID string) (*Balance, error) {
	id, err := s.resolveAccount(ctx, userID, orgPublicID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetBalance(ctx, id)
}

// CheckRemaining decides whether the resolved account may issue
// billable requests. Pay-as-you-go accounts are blocked once
// credit + free_credit reaches zero; invoice-plan accounts are never
// blocked here regardless of balance.
func (s *Service) CheckRemaining(ctx context.Context, userID, orgPublicID string) (*CheckResult, error) {
	id, err := s.resolveAccount(ctx, userID, orgPublicID)
	if err == ErrOrganizationNotFound || err == ErrOrganizationOwnerNotFound {
		return &CheckResult{
			Allowed:   false,
			Remaining: decimal.Zero,
			Plan:      PlanDefault,
			Status:    http.StatusBadRequest,
			Message:   "Organization owner not found",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.GetBalance(ctx, id)
	if err != nil {
		return nil, err
	}

	remaining := balance.Remaining()
	if remaining.Sign() <= 0 && balance.Plan == PlanDefault {
		status := http.StatusBadRequest
		message := "No remaining credits"
		if orgPublicID != "" {
			status = http.StatusPaymentRequired
			message = "Insufficient organization credits"
		}
		return &CheckResult{
			Allowed:   false,
			Remaining: remaining,
			Plan:      balance.Plan,
			Status:    status,
			Message:   message,
		}, nil
	}

	return &CheckResult{
		Allowed:   true,
		Remaining: remaining,
		Plan:      balance.Plan,
		Status:    http.StatusOK,
		Message:   "Success",
	}, nil
}

// Deduct applies a usage cost to the resolved account's balance.
// Free credit is consumed first; the remainder comes out of paid
// credit, which has no floor. A cost of zero or less is a no-op and
// returns a nil deduction.
func (s *Service) Deduct(ctx context.Context, userID, orgPublicID string, cost decimal.Decimal) (*Deduction, error) {
	if cost.Sign() <= 0 {
		return nil, nil
	}

	id, err := s.resolveAccount(ctx, userID, orgPublicID)
	if err != nil {
		return nil, err
	}

	before, err := s.repo.GetBalance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	after, err := s.repo.Deduct(ctx, id, cost)
	if err != nil {
		s.log.Error(id, "", "credit deduction failed", map[string]interface{}{
			"cost":  cost.String(),
			"error": err.Error(),
		})
		return nil, fmt.Errorf("failed to deduct credit: %w", err)
	}

	fromFree := decimal.Min(before.FreeCredit, cost)
	if fromFree.Sign() < 0 {
		fromFree = decimal.Zero
	}

	deduction := &Deduction{
		UserID:     id,
		Cost:       cost,
		FromFree:   fromFree,
		FromPaid:   cost.Sub(fromFree),
		Credit:     after.Credit,
		FreeCredit: after.FreeCredit,
	}

	s.log.Info(id, "", "credit deducted", map[string]interface{}{
		"cost":        cost.String(),
		"from_free":   deduction.FromFree.String(),
		"from_paid":   deduction.FromPaid.String(),
		"credit":      after.Credit.String(),
		"free_credit": after.FreeCredit.String(),
	})

	return deduction, nil
}

// AddCredit increases the paid balance, e.g. after a completed purchase
func (s *Service) AddCredit(ctx context.Context, userID string, amount decimal.Decimal) (*Balance, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.AddCredit(ctx, userID, amount)
}

// GrantFreeCredit increases the promotional balance
func (s *Service) GrantFreeCredit(ctx context.Context, userID string, amount decimal.Decimal) (*Balance, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.repo.AddFreeCredit(ctx, userID, amount)
}

// SetPlan switches the account between pay-as-you-go and invoice billing
func (s *Service) SetPlan(ctx context.Context, userID string, plan Plan) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	if !isValidPlan(plan) {
		return ErrInvalidPlan
	}
	return s.repo.SetPlan(ctx, userID, plan)
}

// IsHealthy checks if the service is healthy
func (s *Service) IsHealthy(ctx context.Context) bool {
	return s.repo.Ping(ctx) == nil
}
