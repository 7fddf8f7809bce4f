// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"swarms/platform/gateway/credit"
	"swarms/platform/shared/logger"
)

// CreditLedger is the slice of the credit service used to grant credit
// for verified payments
type CreditLedger interface {
	AddCredit(ctx context.Context, userID string, amount decimal.Decimal) (*credit.Balance, error)
}

// Service confirms on-chain token payments and converts them into
// platform credit. Each signature is claimed in the database before any
// crediting happens, so retries and replays can never pay out twice.
type Service struct {
	repo     Repository
	verifier ChainVerifier
	price    PriceSource
	ledger   CreditLedger
	log      *logger.Logger
}

// NewService creates a new crypto payment service
func NewService(repo Repository, verifier ChainVerifier, price PriceSource, ledger CreditLedger) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
		price:    price,
		ledger:   ledger,
		log:      logger.New("cryptopay"),
	}
}

// ConfirmAndCredit verifies a claimed payment and credits the account.
// The flow is: claim the signature, verify the transfer on chain,
// price it in USD, grant credit, mark the row credited. A verification
// or pricing failure marks the row failed and surfaces the error; the
// signature stays reserved so the case can be reviewed and resolved by
// hand rather than silently retried into a double credit.
func (s *Service) ConfirmAndCredit(ctx context.Context, userID, signature string, amountTokens decimal.Decimal) (*Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if signature == "" {
		return nil, ErrInvalidSignature
	}
	if amountTokens.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.repo.InsertPending(ctx, userID, signature, amountTokens)
	if err != nil {
		return nil, err
	}

	if err := s.verifier.VerifyTransfer(ctx, signature, amountTokens); err != nil {
		s.fail(ctx, signature, err)
		return nil, err
	}

	price, err := s.price.SpotPriceUSD(ctx)
	if err != nil {
		s.fail(ctx, signature, err)
		return nil, err
	}

	amountUSD := amountTokens.Mul(price).Round(4)
	if _, err := s.ledger.AddCredit(ctx, userID, amountUSD); err != nil {
		s.fail(ctx, signature, err)
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}

	if err := s.repo.MarkCredited(ctx, signature, amountUSD); err != nil {
		// Credit is already granted; the row stays pending and the
		// signature stays reserved, so nothing is lost or doubled
		s.log.Error(userID, "", "credited but failed to update transaction", map[string]interface{}{
			"signature": signature,
			"error":     err.Error(),
		})
		return nil, err
	}

	tx.Status = StatusCredited
	tx.AmountUSD = amountUSD

	s.log.Info(userID, "", "crypto payment credited", map[string]interface{}{
		"signature":     signature,
		"amount_tokens": amountTokens.String(),
		"amount_usd":    amountUSD.String(),
	})
	return tx, nil
}

// GetTransaction returns the payment row for a signature
func (s *Service) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	if signature == "" {
		return nil, ErrInvalidSignature
	}
	return s.repo.GetBySignature(ctx, signature)
}

// IsHealthy checks if the service is healthy
func (s *Service) IsHealthy(ctx context.Context) bool {
	return s.repo.Ping(ctx) == nil
}

func (s *Service) fail(ctx context.Context, signature string, cause error) {
	if err := s.repo.MarkFailed(ctx, signature, cause.Error()); err != nil {
		s.log.Error("", "", "failed to record transaction failure", map[string]interface{}{
			"signature": signature,
			"error":     err.Error(),
		})
	}
}
