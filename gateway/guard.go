// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"swarms/platform/common/usage"
	"swarms/platform/gateway/credit"
	"swarms/platform/gateway/ratelimit"
)

// Guard runs the metering pipeline for API-key traffic: authenticate
// the key, apply the per-minute rate limit, verify credit eligibility,
// then record and charge the usage after the work is done.
type Guard struct {
	db                *sql.DB
	credits           *credit.Service
	limiter           *ratelimit.Limiter
	daily             *ratelimit.DailyLimiter
	recorder          *usage.Recorder
	requestsPerMinute int
}

// NewGuard creates a new request guard
func NewGuard(db *sql.DB, credits *credit.Service, limiter *ratelimit.Limiter, daily *ratelimit.DailyLimiter, recorder *usage.Recorder, requestsPerMinute int) *Guard {
	return &Guard{
		db:                db,
		credits:           credits,
		limiter:           limiter,
		daily:             daily,
		recorder:          recorder,
		requestsPerMinute: requestsPerMinute,
	}
}

// RegisterRoutes registers the metered API routes with a gorilla/mux router
func (g *Guard) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/requests", g.BillableRequest).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/v1/content/{content_type}", g.CreateContent).Methods("POST", "OPTIONS")
}

// apiKeyIdentity is the account an API key resolves to
type apiKeyIdentity struct {
	KeyID  string
	UserID string
}

// authenticate resolves the calling API key to its account. Keys come
// either from the X-API-Key header or an sk- prefixed bearer token.
func (g *Guard) authenticate(ctx context.Context, r *http.Request) (*apiKeyIdentity, error) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer sk-") {
			key = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if key == "" {
		return nil, errMissingAPIKey
	}

	query := `
		SELECT id, user_id
		FROM swarms_cloud_api_keys
		WHERE key = $1 AND is_deleted IS NOT TRUE
	`

	var id apiKeyIdentity
	err := g.db.QueryRowContext(ctx, query, key).Scan(&id.KeyID, &id.UserID)
	if err == sql.ErrNoRows {
		return nil, errInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// BillableRequestBody describes one metered model invocation
type BillableRequestBody struct {
	Model          string `json:"model"`
	InputTokens    int    `json:"input_tokens"`
	OutputTokens   int    `json:"output_tokens"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// BillableRequest handles POST /api/v1/requests: the full metering
// pipeline for one API call
func (g *Guard) BillableRequest(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	started := time.Now()
	defer func() {
		promRequestDuration.WithLabelValues("requests").
			Observe(float64(time.Since(started).Milliseconds()))
	}()

	ctx := r.Context()

	identity, err := g.authenticate(ctx, r)
	if err != nil {
		gatewayMetrics.recordFailure()
		writeGuardError(w, err)
		return
	}

	decision, err := g.limiter.Allow(ctx, identity.UserID, g.requestsPerMinute)
	if err != nil {
		gatewayMetrics.recordFailure()
		writeError(w, "Rate limit check failed", http.StatusInternalServerError)
		return
	}
	if !decision.Allowed {
		gatewayMetrics.recordRateLimited()
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":      http.StatusText(http.StatusTooManyRequests),
			"message":    "Rate limit exceeded",
			"limit":      decision.Limit,
			"reset_time": decision.ResetTime,
		})
		return
	}

	var body BillableRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Model == "" {
		gatewayMetrics.recordFailure()
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	check, err := g.credits.CheckRemaining(ctx, identity.UserID, body.OrganizationID)
	if err != nil {
		gatewayMetrics.recordFailure()
		writeError(w, "Credit check failed", http.StatusInternalServerError)
		return
	}
	if !check.Allowed {
		gatewayMetrics.recordCreditBlocked()
		writeError(w, check.Message, check.Status)
		return
	}

	costCents := usage.CalculateCost(body.Model, body.InputTokens, body.OutputTokens)
	costUSD := usage.CostToUSD(costCents)

	// Usage rows are best effort and must never block the response
	go func() {
		_ = g.recorder.RecordActivity(usage.ActivityEvent{
			UserID:         identity.UserID,
			OrganizationID: body.OrganizationID,
			APIKeyID:       identity.KeyID,
			Model:          body.Model,
			InputTokens:    body.InputTokens,
			OutputTokens:   body.OutputTokens,
		})
	}()

	deduction, err := g.credits.Deduct(ctx, identity.UserID, body.OrganizationID, costUSD)
	if err != nil {
		gatewayMetrics.recordFailure()
		writeError(w, "Failed to charge usage", http.StatusInternalServerError)
		return
	}

	gatewayMetrics.recordSuccess()

	response := map[string]interface{}{
		"request_id": uuid.New().String(),
		"model":      body.Model,
		"cost":       costUSD.String(),
	}
	if deduction != nil {
		response["remaining_credit"] = deduction.Credit.Add(deduction.FreeCredit).String()
	}
	writeJSON(w, http.StatusOK, response)
}

// ContentRequestBody describes a marketplace content submission
type ContentRequestBody struct {
	Name   string `json:"name"`
	IsFree bool   `json:"is_free"`
}

// CreateContent handles POST /api/v1/content/{content_type}:
// marketplace publishing gated by the daily quota
func (g *Guard) CreateContent(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()

	var contentType ratelimit.ContentType
	switch mux.Vars(r)["content_type"] {
	case "prompts":
		contentType = ratelimit.ContentPrompt
	case "agents":
		contentType = ratelimit.ContentAgent
	default:
		writeError(w, "Unknown content type", http.StatusNotFound)
		return
	}

	identity, err := g.authenticate(ctx, r)
	if err != nil {
		writeGuardError(w, err)
		return
	}

	var body ContentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	decision := g.daily.Check(ctx, identity.UserID, contentType, !body.IsFree)
	if !decision.Allowed {
		gatewayMetrics.recordDailyLimited()
		writeJSON(w, http.StatusTooManyRequests, decision)
		return
	}

	if err := g.insertContent(ctx, contentType, identity.UserID, body); err != nil {
		writeError(w, "Failed to create content", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Content created",
		"usage":   decision.CurrentUsage,
		"limits":  decision.Limits,
	})
}

func (g *Guard) insertContent(ctx context.Context, contentType ratelimit.ContentType, userID string, body ContentRequestBody) error {
	table := "swarms_cloud_prompts"
	if contentType == ratelimit.ContentAgent {
		table = "swarms_cloud_agents"
	}

	// Table name is fixed by the switch above
	query := `INSERT INTO ` + table + ` (id, user_id, name, is_free) VALUES ($1, $2, $3, $4)`
	_, err := g.db.ExecContext(ctx, query, uuid.New().String(), userID, body.Name, body.IsFree)
	return err
}
