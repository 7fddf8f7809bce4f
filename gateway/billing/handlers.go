// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Handler provides HTTP handlers for the billing APIs
type Handler struct {
	service *Service
}

// NewHandler creates a new billing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all billing routes with a gorilla/mux router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/billing/usage", h.MonthlyUsage).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/billing/invoice", h.SendInvoice).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/billing/invoice/{invoice_id}/charge", h.AttemptCharge).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/billing/status", h.InvoiceStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/billing/payment-methods", h.ListPaymentMethods).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/billing/payment-methods", h.AttachPaymentMethod).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/billing/payment-methods/{payment_method_id}", h.DetachPaymentMethod).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/v1/billing/payment-methods/default", h.SetDefaultPaymentMethod).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/v1/billing/checkout", h.CreateCheckout).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/billing/portal", h.CreatePortal).Methods("POST", "OPTIONS")
}

// SendInvoiceRequest is the request body for issuing a usage invoice
type SendInvoiceRequest struct {
	Amount float64 `json:"amount"`
	Month  string  `json:"month,omitempty"`
}

// PaymentMethodRequest is the request body for payment method operations
type PaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

// CheckoutRequest is the request body for a credit purchase session
type CheckoutRequest struct {
	Amount     float64 `json:"amount"`
	SuccessURL string  `json:"success_url"`
	CancelURL  string  `json:"cancel_url"`
}

// PortalRequest is the request body for a billing portal session
type PortalRequest struct {
	ReturnURL string `json:"return_url"`
}

// MonthlyUsage handles GET /api/v1/billing/usage
func (h *Handler) MonthlyUsage(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	month := time.Now().UTC()
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := time.Parse("2006-01", m)
		if err != nil {
			h.writeError(w, "Invalid month, expected YYYY-MM", http.StatusBadRequest)
			return
		}
		month = parsed
	}

	usage, err := h.service.MonthlyUsage(r.Context(), userID, month)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, usage)
}

// SendInvoice handles POST /api/v1/billing/invoice. With an explicit
// amount it invoices that amount; otherwise it invoices the month's
// recorded usage.
func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req SendInvoiceRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var tx *Transaction
	var err error
	if req.Amount != 0 {
		tx, err = h.service.SendInvoice(r.Context(), userID, decimal.NewFromFloat(req.Amount))
	} else {
		month := time.Now().UTC()
		if req.Month != "" {
			month, err = time.Parse("2006-01", req.Month)
			if err != nil {
				h.writeError(w, "Invalid month, expected YYYY-MM", http.StatusBadRequest)
				return
			}
		}
		tx, err = h.service.InvoiceMonthlyUsage(r.Context(), userID, month)
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if tx == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "No billable usage"})
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// AttemptCharge handles POST /api/v1/billing/invoice/{invoice_id}/charge
func (h *Handler) AttemptCharge(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	invoiceID := mux.Vars(r)["invoice_id"]
	charged, err := h.service.AttemptAutomaticCharge(r.Context(), invoiceID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"charged": charged})
}

// InvoiceStatus handles GET /api/v1/billing/status
func (h *Handler) InvoiceStatus(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	ok, err := h.service.CheckLastInvoiceStatus(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"in_good_standing": ok})
}

// ListPaymentMethods handles GET /api/v1/billing/payment-methods
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	methods, err := h.service.ListPaymentMethods(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, methods)
}

// AttachPaymentMethod handles POST /api/v1/billing/payment-methods
func (h *Handler) AttachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req PaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentMethodID == "" {
		h.writeError(w, "Missing payment_method_id", http.StatusBadRequest)
		return
	}

	if err := h.service.AttachPaymentMethod(r.Context(), userID, req.PaymentMethodID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Payment method attached"})
}

// DetachPaymentMethod handles DELETE /api/v1/billing/payment-methods/{payment_method_id}
func (h *Handler) DetachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	pmID := mux.Vars(r)["payment_method_id"]
	if err := h.service.DetachPaymentMethod(r.Context(), pmID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Payment method detached"})
}

// SetDefaultPaymentMethod handles PUT /api/v1/billing/payment-methods/default
func (h *Handler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req PaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentMethodID == "" {
		h.writeError(w, "Missing payment_method_id", http.StatusBadRequest)
		return
	}

	if err := h.service.SetDefaultPaymentMethod(r.Context(), userID, req.PaymentMethodID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Default payment method updated"})
}

// CreateCheckout handles POST /api/v1/billing/checkout
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.service.CreateCheckoutSession(r.Context(), userID,
		decimal.NewFromFloat(req.Amount), req.SuccessURL, req.CancelURL)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID, "url": sess.URL})
}

// CreatePortal handles POST /api/v1/billing/portal
func (h *Handler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		h.writeError(w, "Missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req PortalRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sess, err := h.service.CreatePortalSession(r.Context(), userID, req.ReturnURL)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID, "url": sess.URL})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidUserID, ErrInvalidAmount, ErrInvalidInvoiceID:
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case ErrCustomerNotFound, ErrTransactionNotFound:
		h.writeError(w, err.Error(), http.StatusNotFound)
	case ErrNoPaymentMethod:
		h.writeError(w, err.Error(), http.StatusPaymentRequired)
	default:
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, Authorization")
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
