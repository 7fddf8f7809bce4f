// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package usage

import (
	"database/sql"
	"log"

	"github.com/shopspring/decimal"
)

// Recorder handles recording API activity to the database
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a new usage recorder with a database connection
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// ActivityEvent represents one billable API request
type ActivityEvent struct {
	UserID         string
	OrganizationID string // Optional: set when the request used an org key
	APIKeyID       string // Optional: which key issued the request
	Model          string
	InputTokens    int
	OutputTokens   int
	InputCost      decimal.Decimal // Optional: computed from pricing when zero
	OutputCost     decimal.Decimal
	TotalCost      decimal.Decimal
	RequestCount   int
}

// RecordActivity records an API activity row.
// Errors are logged but don't block responses.
func (r *Recorder) RecordActivity(event ActivityEvent) error {
	if event.RequestCount == 0 {
		event.RequestCount = 1
	}
	if event.TotalCost.IsZero() && event.Model != "" {
		pricingMu.RLock()
		pricing, ok := modelPricing[event.Model]
		if !ok {
			pricing = modelPricing["default"]
		}
		pricingMu.RUnlock()

		event.InputCost = CostToUSD((event.InputTokens * pricing.InputCostPer1K) / 1000)
		event.OutputCost = CostToUSD((event.OutputTokens * pricing.OutputCostPer1K) / 1000)
		event.TotalCost = event.InputCost.Add(event.OutputCost)
	}

	_, err := r.db.Exec(`
		INSERT INTO swarms_cloud_api_activities (
			user_id, organization_id, api_key_id, model,
			input_tokens, output_tokens, input_cost, output_cost,
			total_cost, request_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, event.UserID, nullString(event.OrganizationID), nullString(event.APIKeyID),
		event.Model, event.InputTokens, event.OutputTokens,
		event.InputCost.String(), event.OutputCost.String(),
		event.TotalCost.String(), event.RequestCount)

	if err != nil {
		log.Printf("[USAGE] Failed to record API activity: %v", err)
	}

	return err
}

// nullString converts an empty string to NULL for database insertion
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
