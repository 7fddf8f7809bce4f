// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v81"
)

// MockRepository is an in-memory implementation of Repository for testing
type MockRepository struct {
	mu           sync.Mutex
	transactions []*Transaction
	customers    map[string]string
	usage        map[string]decimal.Decimal
	failNext     error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		customers: make(map[string]string),
		usage:     make(map[string]decimal.Decimal),
	}
}

func (m *MockRepository) SetFailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockRepository) takeErr() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MockRepository) InsertTransaction(ctx context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = fmt.Sprintf("tx-%d", len(m.transactions)+1)
	}
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *MockRepository) LatestTransaction(ctx context.Context, userID string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].UserID == userID {
			return m.transactions[i], nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *MockRepository) MarkPaymentSuccessful(ctx context.Context, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return err
	}
	for _, tx := range m.transactions {
		if tx.InvoiceID == invoiceID {
			tx.PaymentSuccessful = true
		}
	}
	return nil
}

func (m *MockRepository) MonthlyUsage(ctx context.Context, userID string, month time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return decimal.Zero, err
	}
	return m.usage[userID], nil
}

func (m *MockRepository) GetStripeCustomerID(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return "", err
	}
	id, ok := m.customers[userID]
	if !ok {
		return "", ErrCustomerNotFound
	}
	return id, nil
}

func (m *MockRepository) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return err
	}
	m.customers[userID] = customerID
	return nil
}

func (m *MockRepository) Ping(ctx context.Context) error { return nil }

// fakeStripe is a canned StripeClient for testing
type fakeStripe struct {
	invoices       map[string]*stripe.Invoice
	customers      map[string]*stripe.Customer
	methods        map[string][]*stripe.PaymentMethod
	defaults       map[string]string
	payErr         error
	invoiceCount   int
	itemAmounts    []int64
	sentInvoiceIDs []string
}

func newFakeStripe() *fakeStripe {
	return &fakeStripe{
		invoices:  make(map[string]*stripe.Invoice),
		customers: make(map[string]*stripe.Customer),
		methods:   make(map[string][]*stripe.PaymentMethod),
		defaults:  make(map[string]string),
	}
}

func (f *fakeStripe) CreateCustomer(ctx context.Context, email, name string) (*stripe.Customer, error) {
	c := &stripe.Customer{ID: fmt.Sprintf("cus_%d", len(f.customers)+1), Email: email}
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeStripe) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	c, ok := f.customers[customerID]
	if !ok {
		c = &stripe.Customer{ID: customerID}
		f.customers[customerID] = c
	}
	if def := f.defaults[customerID]; def != "" {
		c.InvoiceSettings = &stripe.CustomerInvoiceSettings{
			DefaultPaymentMethod: &stripe.PaymentMethod{ID: def},
		}
	}
	return c, nil
}

func (f *fakeStripe) CreateInvoice(ctx context.Context, customerID, description string, dueDate time.Time) (*stripe.Invoice, error) {
	f.invoiceCount++
	inv := &stripe.Invoice{
		ID:       fmt.Sprintf("in_%d", f.invoiceCount),
		Status:   stripe.InvoiceStatusDraft,
		Customer: &stripe.Customer{ID: customerID},
		DueDate:  dueDate.Unix(),
	}
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeStripe) AddInvoiceItem(ctx context.Context, customerID, invoiceID string, amountCents int64, description string) error {
	f.itemAmounts = append(f.itemAmounts, amountCents)
	return nil
}

func (f *fakeStripe) SendInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	inv := f.invoices[invoiceID]
	inv.Status = stripe.InvoiceStatusOpen
	f.sentInvoiceIDs = append(f.sentInvoiceIDs, invoiceID)
	return inv, nil
}

func (f *fakeStripe) GetInvoice(ctx context.Context, invoiceID string) (*stripe.Invoice, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return nil, errors.New("no such invoice")
	}
	return inv, nil
}

func (f *fakeStripe) PayInvoice(ctx context.Context, invoiceID, paymentMethodID string) (*stripe.Invoice, error) {
	if f.payErr != nil {
		return nil, f.payErr
	}
	inv := f.invoices[invoiceID]
	inv.Status = stripe.InvoiceStatusPaid
	return inv, nil
}

func (f *fakeStripe) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*stripe.PaymentMethod, error) {
	pm := &stripe.PaymentMethod{ID: paymentMethodID}
	f.methods[customerID] = append(f.methods[customerID], pm)
	return pm, nil
}

func (f *fakeStripe) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	for cus, pms := range f.methods {
		kept := pms[:0]
		for _, pm := range pms {
			if pm.ID != paymentMethodID {
				kept = append(kept, pm)
			}
		}
		f.methods[cus] = kept
	}
	return nil
}

func (f *fakeStripe) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	return f.methods[customerID], nil
}

func (f *fakeStripe) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	f.defaults[customerID] = paymentMethodID
	return nil
}

func (f *fakeStripe) CreateCheckoutSession(ctx context.Context, customerID string, amountCents int64, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil
}

func (f *fakeStripe) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	return &stripe.BillingPortalSession{ID: "bps_1", URL: "https://portal.example/bps_1"}, nil
}

func newTestService(repo *MockRepository, fs *fakeStripe) *Service {
	svc := NewService(repo, fs)
	svc.nowFn = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestSendInvoice(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	tx, err := svc.SendInvoice(context.Background(), "user-1", decimal.NewFromFloat(12.34))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx == nil {
		t.Fatal("expected a transaction")
	}

	if tx.InvoiceID != "in_1" {
		t.Errorf("expected invoice in_1, got %s", tx.InvoiceID)
	}
	if tx.PaymentSuccessful {
		t.Error("new transaction should not be marked paid")
	}
	if len(fs.itemAmounts) != 1 || fs.itemAmounts[0] != 1234 {
		t.Errorf("expected one invoice item of 1234 cents, got %v", fs.itemAmounts)
	}
	if len(fs.sentInvoiceIDs) != 1 {
		t.Errorf("expected invoice to be sent, got %v", fs.sentInvoiceIDs)
	}

	inv := fs.invoices["in_1"]
	wantDue := svc.nowFn().Add(InvoiceDueAfter).Unix()
	if inv.DueDate != wantDue {
		t.Errorf("expected due date %d, got %d", wantDue, inv.DueDate)
	}
}

func TestSendInvoiceZeroAmountIsNoop(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(-5)} {
		tx, err := svc.SendInvoice(context.Background(), "user-1", amount)
		if err != nil {
			t.Fatalf("amount %s: unexpected error: %v", amount, err)
		}
		if tx != nil {
			t.Errorf("amount %s: expected nil transaction", amount)
		}
	}

	if fs.invoiceCount != 0 {
		t.Errorf("expected no invoices created, got %d", fs.invoiceCount)
	}
	if len(repo.transactions) != 0 {
		t.Errorf("expected no transaction rows, got %d", len(repo.transactions))
	}
}

func TestSendInvoiceNoCustomer(t *testing.T) {
	repo := NewMockRepository()
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	_, err := svc.SendInvoice(context.Background(), "user-1", decimal.NewFromInt(10))
	if err != ErrCustomerNotFound {
		t.Errorf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestInvoiceMonthlyUsage(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	repo.usage["user-1"] = decimal.NewFromFloat(7.50)
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	tx, err := svc.InvoiceMonthlyUsage(context.Background(), "user-1", svc.nowFn())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx == nil {
		t.Fatal("expected a transaction")
	}
	if !tx.TotalMonthlyCost.Equal(decimal.NewFromFloat(7.50)) {
		t.Errorf("expected cost 7.50, got %s", tx.TotalMonthlyCost)
	}
	if len(fs.itemAmounts) != 1 || fs.itemAmounts[0] != 750 {
		t.Errorf("expected 750 cents, got %v", fs.itemAmounts)
	}
}

func TestInvoiceMonthlyUsageNothingBillable(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	tx, err := svc.InvoiceMonthlyUsage(context.Background(), "user-1", svc.nowFn())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx != nil {
		t.Error("expected nil transaction for a month with no usage")
	}
	if fs.invoiceCount != 0 {
		t.Errorf("expected no invoices, got %d", fs.invoiceCount)
	}
}

func TestAttemptAutomaticChargeSuccess(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	fs.defaults["cus_1"] = "pm_1"
	svc := newTestService(repo, fs)

	tx, err := svc.SendInvoice(context.Background(), "user-1", decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	charged, err := svc.AttemptAutomaticCharge(context.Background(), tx.InvoiceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !charged {
		t.Error("expected charge to succeed")
	}

	latest, err := repo.LatestTransaction(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.PaymentSuccessful {
		t.Error("expected transaction marked payment_successful")
	}
}

func TestAttemptAutomaticChargeNoPaymentMethod(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	tx, _ := svc.SendInvoice(context.Background(), "user-1", decimal.NewFromInt(20))

	charged, err := svc.AttemptAutomaticCharge(context.Background(), tx.InvoiceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charged {
		t.Error("expected charge to be skipped without a payment method")
	}

	latest, _ := repo.LatestTransaction(context.Background(), "user-1")
	if latest.PaymentSuccessful {
		t.Error("transaction must not be marked paid")
	}
}

func TestAttemptAutomaticChargeFailureLeavesInvoiceOpen(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	fs.defaults["cus_1"] = "pm_1"
	fs.payErr = errors.New("card declined")
	svc := newTestService(repo, fs)

	tx, _ := svc.SendInvoice(context.Background(), "user-1", decimal.NewFromInt(20))

	charged, err := svc.AttemptAutomaticCharge(context.Background(), tx.InvoiceID)
	if err != nil {
		t.Fatalf("charge failure should not surface an error, got %v", err)
	}
	if charged {
		t.Error("expected charge to fail")
	}

	latest, _ := repo.LatestTransaction(context.Background(), "user-1")
	if latest.PaymentSuccessful {
		t.Error("transaction must not be marked paid after a declined charge")
	}
}

func TestAttemptAutomaticChargeAlreadyPaid(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	tx, _ := svc.SendInvoice(context.Background(), "user-1", decimal.NewFromInt(20))
	fs.invoices[tx.InvoiceID].Status = stripe.InvoiceStatusPaid

	charged, err := svc.AttemptAutomaticCharge(context.Background(), tx.InvoiceID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !charged {
		t.Error("already-paid invoice should report charged")
	}

	latest, _ := repo.LatestTransaction(context.Background(), "user-1")
	if !latest.PaymentSuccessful {
		t.Error("expected transaction marked payment_successful")
	}
}

func TestCheckLastInvoiceStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		setup func(repo *MockRepository, fs *fakeStripe)
		want  bool
	}{
		{
			name:  "no billing history passes",
			setup: func(repo *MockRepository, fs *fakeStripe) {},
			want:  true,
		},
		{
			name: "locally recorded payment passes",
			setup: func(repo *MockRepository, fs *fakeStripe) {
				repo.transactions = append(repo.transactions, &Transaction{
					ID: "tx-1", UserID: "user-1", InvoiceID: "in_1", PaymentSuccessful: true,
				})
			},
			want: true,
		},
		{
			name: "paid on stripe side passes",
			setup: func(repo *MockRepository, fs *fakeStripe) {
				repo.transactions = append(repo.transactions, &Transaction{
					ID: "tx-1", UserID: "user-1", InvoiceID: "in_1",
				})
				fs.invoices["in_1"] = &stripe.Invoice{ID: "in_1", Status: stripe.InvoiceStatusPaid}
			},
			want: true,
		},
		{
			name: "unpaid without a due date passes",
			setup: func(repo *MockRepository, fs *fakeStripe) {
				repo.transactions = append(repo.transactions, &Transaction{
					ID: "tx-1", UserID: "user-1", InvoiceID: "in_1",
				})
				fs.invoices["in_1"] = &stripe.Invoice{ID: "in_1", Status: stripe.InvoiceStatusOpen}
			},
			want: true,
		},
		{
			name: "unpaid before due date passes",
			setup: func(repo *MockRepository, fs *fakeStripe) {
				repo.transactions = append(repo.transactions, &Transaction{
					ID: "tx-1", UserID: "user-1", InvoiceID: "in_1",
				})
				fs.invoices["in_1"] = &stripe.Invoice{
					ID: "in_1", Status: stripe.InvoiceStatusOpen,
					DueDate: now.Add(24 * time.Hour).Unix(),
				}
			},
			want: true,
		},
		{
			name: "unpaid past due date fails",
			setup: func(repo *MockRepository, fs *fakeStripe) {
				repo.transactions = append(repo.transactions, &Transaction{
					ID: "tx-1", UserID: "user-1", InvoiceID: "in_1",
				})
				fs.invoices["in_1"] = &stripe.Invoice{
					ID: "in_1", Status: stripe.InvoiceStatusOpen,
					DueDate: now.Add(-time.Hour).Unix(),
				}
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockRepository()
			fs := newFakeStripe()
			tt.setup(repo, fs)
			svc := newTestService(repo, fs)

			got, err := svc.CheckLastInvoiceStatus(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEnsureCustomerCreatesOnce(t *testing.T) {
	repo := NewMockRepository()
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	id1, err := svc.EnsureCustomer(context.Background(), "user-1", "a@example.com", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := svc.EnsureCustomer(context.Background(), "user-1", "a@example.com", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected same customer, got %s and %s", id1, id2)
	}
	if len(fs.customers) != 1 {
		t.Errorf("expected one stripe customer, got %d", len(fs.customers))
	}
}

func TestAttachPaymentMethodIdempotent(t *testing.T) {
	repo := NewMockRepository()
	repo.customers["user-1"] = "cus_1"
	fs := newFakeStripe()
	svc := newTestService(repo, fs)

	if err := svc.AttachPaymentMethod(context.Background(), "user-1", "pm_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.AttachPaymentMethod(context.Background(), "user-1", "pm_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fs.methods["cus_1"]) != 1 {
		t.Errorf("expected one attached method, got %d", len(fs.methods["cus_1"]))
	}
	// First method becomes the default
	if fs.defaults["cus_1"] != "pm_1" {
		t.Errorf("expected pm_1 as default, got %q", fs.defaults["cus_1"])
	}
}

func TestMonthlyUsageValidation(t *testing.T) {
	svc := newTestService(NewMockRepository(), newFakeStripe())

	if _, err := svc.MonthlyUsage(context.Background(), "", time.Now()); err != ErrInvalidUserID {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
}
