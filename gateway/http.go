// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// errMissingAPIKey is returned when a request carries no API key
	errMissingAPIKey = errors.New("missing API key")

	// errInvalidAPIKey is returned when the key is unknown or revoked
	errInvalidAPIKey = errors.New("invalid API key")
)

func writeGuardError(w http.ResponseWriter, err error) {
	switch err {
	case errMissingAPIKey, errInvalidAPIKey:
		writeError(w, err.Error(), http.StatusUnauthorized)
	default:
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-API-Key, Authorization")
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
