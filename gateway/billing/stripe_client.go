// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeClient is the slice of the Stripe API the billing service uses.
// Production code wraps the official SDK; tests substitute a fake.
type StripeClient interface {
	CreateCustomer(ctx context.Context, email, name string) (*stripe.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)

	CreateInvoice(ctx context.Context, customerID, description string, dueDate time.Time) (*stripe.Invoice, error)
	AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, description string) error
	SendInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error)
	PayInvoice(ctx context.Context, invoiceID, paymentMethodID string) (*stripe.Invoice, error)

	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*stripe.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateCheckoutSession(ctx context.Context, customerID string, amountCents int64, successURL, cancelURL string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
}

// APIClient implements StripeClient against the Stripe API
type APIClient struct {
	sc *client.API
}

// NewAPIClient creates a Stripe client with the given secret key
func NewAPIClient(secretKey string) *APIClient {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &APIClient{sc: sc}
}

// CreateCustomer creates a new Stripe customer
func (c *APIClient) CreateCustomer(ctx context.Context, email, name string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Name:   stripe.String(name),
	}
	customer, err := c.sc.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a Stripe customer
func (c *APIClient) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{Params: stripe.Params{Context: ctx}}
	customer, err := c.sc.Customers.Get(customerID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get stripe customer: %w", err)
	}
	return customer, nil
}

// CreateInvoice creates a draft invoice collected by email rather than
// by automatic charge. Items are attached separately before sending.
func (c *APIClient) CreateInvoice(ctx context.Context, customerID, description string, dueDate time.Time) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{
		Params:           stripe.Params{Context: ctx},
		Customer:         stripe.String(customerID),
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice)),
		DueDate:          stripe.Int64(dueDate.Unix()),
		Description:      stripe.String(description),
		AutoAdvance:      stripe.Bool(false),
	}
	inv, err := c.sc.Invoices.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return inv, nil
}

// AddInvoiceItem attaches a usage line item to a draft invoice
func (c *APIClient) AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, description string) error {
	params := &stripe.InvoiceItemParams{
		Params:      stripe.Params{Context: ctx},
		Customer:    stripe.String(customerID),
		Invoice:     stripe.String(invoiceID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Description: stripe.String(description),
	}
	if _, err := c.sc.InvoiceItems.New(params); err != nil {
		return fmt.Errorf("failed to add invoice item: %w", err)
	}
	return nil
}

// SendInvoice finalizes the invoice and emails it to the customer
func (c *APIClient) SendInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceSendInvoiceParams{Params: stripe.Params{Context: ctx}}
	inv, err := c.sc.Invoices.SendInvoice(invoiceID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice retrieves an invoice
func (c *APIClient) GetInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	params := &stripe.InvoiceParams{Params: stripe.Params{Context: ctx}}
	inv, err := c.sc.Invoices.Get(invoiceID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// PayInvoice pays an open invoice with a specific payment method
func (c *APIClient) PayInvoice(ctx context.Context, invoiceID, paymentMethodID string) (*stripe.Invoice, error) {
	params := &stripe.InvoicePayParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(paymentMethodID),
	}
	inv, err := c.sc.Invoices.Pay(invoiceID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to pay invoice: %w", err)
	}
	return inv, nil
}

// AttachPaymentMethod attaches a payment method to a customer
func (c *APIClient) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
	}
	pm, err := c.sc.PaymentMethods.Attach(paymentMethodID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to attach payment method: %w", err)
	}
	return pm, nil
}

// DetachPaymentMethod detaches a payment method from its customer
func (c *APIClient) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{Params: stripe.Params{Context: ctx}}
	if _, err := c.sc.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return fmt.Errorf("failed to detach payment method: %w", err)
	}
	return nil
}

// ListPaymentMethods lists a customer's card payment methods
func (c *APIClient) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(customerID),
		Type:       stripe.String(string(stripe.PaymentMethodTypeCard)),
	}

	var methods []*stripe.PaymentMethod
	iter := c.sc.PaymentMethods.List(params)
	for iter.Next() {
		methods = append(methods, iter.PaymentMethod())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}

// SetDefaultPaymentMethod sets the customer's default for invoices
func (c *APIClient) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	if _, err := c.sc.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	return nil
}

// CreateCheckoutSession creates a one-time payment session for buying credits
func (c *APIClient) CreateCheckoutSession(ctx context.Context, customerID string, amountCents int64, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Swarms platform credits"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := c.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}

// CreatePortalSession creates a Stripe billing portal session
func (c *APIClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := c.sc.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}
	return sess, nil
}
