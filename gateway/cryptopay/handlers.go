// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// Handler provides HTTP handlers for the crypto payment APIs
type Handler struct {
	service *Service
}

// NewHandler creates a new crypto payment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all crypto payment routes with a gorilla/mux router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/crypto/confirm", h.Confirm).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/crypto/transactions/{signature}", h.GetTransaction).Methods("GET", "OPTIONS")
}

// ConfirmRequest is the request body for confirming an on-chain payment
type ConfirmRequest struct {
	Signature string  `json:"signature"`
	Amount    float64 `json:"amount"`
}

// Confirm handles POST /api/v1/crypto/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
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

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.service.ConfirmAndCredit(r.Context(), userID, req.Signature,
		decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /api/v1/crypto/transactions/{signature}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), mux.Vars(r)["signature"])
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidUserID, ErrInvalidSignature, ErrInvalidAmount:
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case ErrDuplicateTransaction:
		h.writeError(w, err.Error(), http.StatusConflict)
	case ErrTransactionNotFound:
		h.writeError(w, err.Error(), http.StatusNotFound)
	case ErrNotConfirmed, ErrTransactionFailed, ErrTransferMismatch:
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case ErrPriceUnavailable:
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
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
