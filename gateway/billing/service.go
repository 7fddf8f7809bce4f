// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v81"

	"swarms/platform/shared/logger"
)

// Service runs the monthly invoicing cycle for invoice-plan accounts
// and manages their Stripe payment methods.
type Service struct {
	repo   Repository
	stripe StripeClient
	log    *logger.Logger
	nowFn  func() time.Time
}

// NewService creates a new billing service
func NewService(repo Repository, sc StripeClient) *Service {
	return &Service{
		repo:   repo,
		stripe: sc,
		log:    logger.New("billing"),
		nowFn:  time.Now,
	}
}

// MonthlyUsage returns the user's aggregated API cost for the calendar
// month containing month
func (s *Service) MonthlyUsage(ctx context.Context, userID string, month time.Time) (*UsageSummary, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	total, err := s.repo.MonthlyUsage(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	start, _ := monthBounds(month)
	return &UsageSummary{
		UserID:    userID,
		Month:     start.Format("2006-01"),
		TotalCost: total,
	}, nil
}

// SendInvoice creates a send-by-email Stripe invoice for the given
// amount, records the billing transaction, and emails it to the
// customer. The invoice is due 72 hours after creation. An amount of
// zero or less is a no-op and returns a nil transaction.
func (s *Service) SendInvoice(ctx context.Context, userID string, amount decimal.Decimal) (*Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if amount.Sign() <= 0 {
		return nil, nil
	}

	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	description := fmt.Sprintf("Swarms API usage for %s", now.Format("January 2006"))

	inv, err := s.stripe.CreateInvoice(ctx, customerID, description, now.Add(InvoiceDueAfter))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	// Stripe amounts are integer cents
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if err := s.stripe.AddInvoiceItem(ctx, customerID, inv.ID, cents, description); err != nil {
		return nil, fmt.Errorf("failed to add invoice item: %w", err)
	}

	tx := &Transaction{
		UserID:           userID,
		TotalMonthlyCost: amount,
		StripeCustomerID: customerID,
		InvoiceID:        inv.ID,
		CreatedAt:        now,
	}
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}

	if _, err := s.stripe.SendInvoice(ctx, inv.ID); err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}

	s.log.Info(userID, "", "invoice sent", map[string]interface{}{
		"invoice_id": inv.ID,
		"amount":     amount.String(),
	})

	return tx, nil
}

// InvoiceMonthlyUsage invoices the user for the calendar month's usage.
// Months with no billable usage produce no invoice.
func (s *Service) InvoiceMonthlyUsage(ctx context.Context, userID string, month time.Time) (*Transaction, error) {
	usage, err := s.MonthlyUsage(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	return s.SendInvoice(ctx, userID, usage.TotalCost)
}

// AttemptAutomaticCharge tries to settle an open invoice with the
// customer's default payment method. Best effort: when no method is on
// file or the charge fails, the invoice stays open for manual payment
// and the call reports false without an error.
func (s *Service) AttemptAutomaticCharge(ctx context.Context, invoiceID string) (bool, error) {
	if invoiceID == "" {
		return false, ErrInvalidInvoiceID
	}

	inv, err := s.stripe.GetInvoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}

	if inv.Status == stripe.InvoiceStatusPaid {
		if err := s.repo.MarkPaymentSuccessful(ctx, invoiceID); err != nil {
			return false, err
		}
		return true, nil
	}

	if inv.Customer == nil {
		return false, nil
	}

	customer, err := s.stripe.GetCustomer(ctx, inv.Customer.ID)
	if err != nil {
		return false, err
	}
	if customer.InvoiceSettings == nil || customer.InvoiceSettings.DefaultPaymentMethod == nil {
		s.log.Info("", "", "no default payment method, leaving invoice for manual payment", map[string]interface{}{
			"invoice_id": invoiceID,
		})
		return false, nil
	}

	paid, err := s.stripe.PayInvoice(ctx, invoiceID, customer.InvoiceSettings.DefaultPaymentMethod.ID)
	if err != nil {
		s.log.Warn("", "", "automatic charge failed, invoice remains open", map[string]interface{}{
			"invoice_id": invoiceID,
			"error":      err.Error(),
		})
		return false, nil
	}

	if paid.Status != stripe.InvoiceStatusPaid {
		return false, nil
	}

	if err := s.repo.MarkPaymentSuccessful(ctx, invoiceID); err != nil {
		return false, err
	}

	s.log.Info("", "", "invoice charged automatically", map[string]interface{}{
		"invoice_id": invoiceID,
	})
	return true, nil
}

// CheckLastInvoiceStatus reports whether the user's most recent invoice
// is in good standing: paid, not yet due, or carrying no due date. A
// user with no billing history passes. Only unpaid invoices past their
// due date fail the check.
func (s *Service) CheckLastInvoiceStatus(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUserID
	}

	tx, err := s.repo.LatestTransaction(ctx, userID)
	if err == ErrTransactionNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if tx.PaymentSuccessful {
		return true, nil
	}

	inv, err := s.stripe.GetInvoice(ctx, tx.InvoiceID)
	if err != nil {
		return false, err
	}

	if inv.Status == stripe.InvoiceStatusPaid {
		// Paid on the Stripe side but not yet recorded locally
		if err := s.repo.MarkPaymentSuccessful(ctx, tx.InvoiceID); err != nil {
			return false, err
		}
		return true, nil
	}

	if inv.DueDate == 0 {
		return true, nil
	}
	return s.nowFn().Unix() < inv.DueDate, nil
}

// EnsureCustomer returns the user's Stripe customer ID, creating the
// customer on first use
func (s *Service) EnsureCustomer(ctx context.Context, userID, email, name string) (string, error) {
	if userID == "" {
		return "", ErrInvalidUserID
	}

	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err == nil {
		return customerID, nil
	}
	if err != ErrCustomerNotFound {
		return "", err
	}

	customer, err := s.stripe.CreateCustomer(ctx, email, name)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetStripeCustomerID(ctx, userID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// AttachPaymentMethod attaches a payment method to the user's customer
// unless it is already attached, then makes it the default when the
// customer has none.
func (s *Service) AttachPaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return err
	}

	existing, err := s.stripe.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return err
	}
	for _, pm := range existing {
		if pm.ID == paymentMethodID {
			return nil
		}
	}

	if _, err := s.stripe.AttachPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return err
	}

	if len(existing) == 0 {
		return s.stripe.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
	}
	return nil
}

// DetachPaymentMethod removes a payment method from the user's customer
func (s *Service) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	return s.stripe.DetachPaymentMethod(ctx, paymentMethodID)
}

// ListPaymentMethods returns the user's cards with the default flagged
func (s *Service) ListPaymentMethods(ctx context.Context, userID string) ([]PaymentMethod, error) {
	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customer, err := s.stripe.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defaultID := ""
	if customer.InvoiceSettings != nil && customer.InvoiceSettings.DefaultPaymentMethod != nil {
		defaultID = customer.InvoiceSettings.DefaultPaymentMethod.ID
	}

	methods, err := s.stripe.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, err
	}

	result := make([]PaymentMethod, 0, len(methods))
	for _, pm := range methods {
		m := PaymentMethod{ID: pm.ID, IsDefault: pm.ID == defaultID}
		if pm.Card != nil {
			m.Brand = string(pm.Card.Brand)
			m.Last4 = pm.Card.Last4
			m.ExpMonth = pm.Card.ExpMonth
			m.ExpYear = pm.Card.ExpYear
		}
		result = append(result, m)
	}
	return result, nil
}

// SetDefaultPaymentMethod sets the user's default invoice payment method
func (s *Service) SetDefaultPaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return err
	}
	return s.stripe.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
}

// CreateCheckoutSession creates a Stripe checkout session for buying credits
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string, amount decimal.Decimal, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return s.stripe.CreateCheckoutSession(ctx, customerID, cents, successURL, cancelURL)
}

// CreatePortalSession creates a Stripe billing portal session
func (s *Service) CreatePortalSession(ctx context.Context, userID, returnURL string) (*stripe.BillingPortalSession, error) {
	customerID, err := s.repo.GetStripeCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.stripe.CreatePortalSession(ctx, customerID, returnURL)
}

// IsHealthy checks if the service is healthy
func (s *Service) IsHealthy(ctx context.Context) bool {
	return s.repo.Ping(ctx) == nil
}
