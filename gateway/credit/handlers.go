// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package credit

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Handler provides HTTP handlers for the credit ledger APIs
type Handler struct {
	service *Service
}

// NewHandler creates a new credit handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all credit routes with a gorilla/mux router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/credits", h.GetBalance).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/credits/check", h.CheckRemaining).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/credits/deduct", h.Deduct).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/credits/add", h.AddCredit).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/credits/plan", h.SetPlan).Methods("PUT", "OPTIONS")
}

// CheckRequest is the request body for an eligibility check
type CheckRequest struct {
	OrganizationID string `json:"organization_id,omitempty"`
}

// DeductRequest is the request body for a usage-cost deduction
type DeductRequest struct {
	Cost           float64 `json:"cost"`
	OrganizationID string  `json:"organization_id,omitempty"`
}

// AddCreditRequest is the request body for a credit grant
type AddCreditRequest struct {
	Amount float64 `json:"amount"`
	Free   bool    `json:"free,omitempty"`
}

// SetPlanRequest is the request body for switching billing plans
type SetPlanRequest struct {
	Plan Plan `json:"credit_plan"`
}

// GetBalance handles GET /api/v1/credits
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
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

	balance, err := h.service.GetBalance(r.Context(), userID, r.URL.Query().Get("organization_id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

// CheckRemaining handles POST /api/v1/credits/check
func (h *Handler) CheckRemaining(w http.ResponseWriter, r *http.Request) {
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

	var req CheckRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.service.CheckRemaining(r.Context(), userID, req.OrganizationID)
	if err != nil {
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, result.Status, result)
}

// Deduct handles POST /api/v1/credits/deduct
func (h *Handler) Deduct(w http.ResponseWriter, r *http.Request) {
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

	var req DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	deduction, err := h.service.Deduct(r.Context(), userID, req.OrganizationID,
		decimal.NewFromFloat(req.Cost))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if deduction == nil {
		// Cost <= 0 is a no-op
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "No deduction required"})
		return
	}

	h.writeJSON(w, http.StatusOK, deduction)
}

// AddCredit handles POST /api/v1/credits/add
func (h *Handler) AddCredit(w http.ResponseWriter, r *http.Request) {
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

	var req AddCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amount := decimal.NewFromFloat(req.Amount)

	var balance *Balance
	var err error
	if req.Free {
		balance, err = h.service.GrantFreeCredit(r.Context(), userID, amount)
	} else {
		balance, err = h.service.AddCredit(r.Context(), userID, amount)
	}
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balance)
}

// SetPlan handles PUT /api/v1/credits/plan
func (h *Handler) SetPlan(w http.ResponseWriter, r *http.Request) {
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

	var req SetPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.SetPlan(r.Context(), userID, req.Plan); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Plan updated"})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidUserID, ErrInvalidAmount, ErrInvalidPlan:
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case ErrOrganizationNotFound:
		h.writeError(w, err.Error(), http.StatusNotFound)
	case ErrOrganizationOwnerNotFound:
		h.writeError(w, err.Error(), http.StatusBadRequest)
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
