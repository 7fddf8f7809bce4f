// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarms_gateway_requests_total",
			Help: "Total number of billable requests processed by the gateway",
		},
		[]string{"status"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swarms_gateway_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
		},
		[]string{"endpoint"},
	)
	promRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarms_gateway_rate_limited_total",
			Help: "Total number of requests rejected by the per-minute rate limit",
		},
	)
	promCreditBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarms_gateway_credit_blocked_total",
			Help: "Total number of requests blocked for exhausted credits",
		},
	)
	promDailyLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swarms_gateway_daily_limited_total",
			Help: "Total number of content submissions rejected by daily quotas",
		},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promRateLimited)
	prometheus.MustRegister(promCreditBlocked)
	prometheus.MustRegister(promDailyLimited)
}

// GatewayMetrics tracks request counters for the JSON metrics endpoint
type GatewayMetrics struct {
	mu              sync.RWMutex
	startTime       time.Time
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	rateLimited     int64
	creditBlocked   int64
	dailyLimited    int64
}

var gatewayMetrics = &GatewayMetrics{startTime: time.Now()}

func (m *GatewayMetrics) recordSuccess() {
	m.mu.Lock()
	m.totalRequests++
	m.successRequests++
	m.mu.Unlock()
	promRequestsTotal.WithLabelValues("success").Inc()
}

func (m *GatewayMetrics) recordFailure() {
	m.mu.Lock()
	m.totalRequests++
	m.failedRequests++
	m.mu.Unlock()
	promRequestsTotal.WithLabelValues("error").Inc()
}

func (m *GatewayMetrics) recordRateLimited() {
	m.mu.Lock()
	m.totalRequests++
	m.rateLimited++
	m.mu.Unlock()
	promRequestsTotal.WithLabelValues("rate_limited").Inc()
	promRateLimited.Inc()
}

func (m *GatewayMetrics) recordCreditBlocked() {
	m.mu.Lock()
	m.totalRequests++
	m.creditBlocked++
	m.mu.Unlock()
	promRequestsTotal.WithLabelValues("credit_blocked").Inc()
	promCreditBlocked.Inc()
}

func (m *GatewayMetrics) recordDailyLimited() {
	m.mu.Lock()
	m.totalRequests++
	m.dailyLimited++
	m.mu.Unlock()
	promRequestsTotal.WithLabelValues("daily_limited").Inc()
	promDailyLimited.Inc()
}

// simpleMetricsHandler serves request counters as JSON
func simpleMetricsHandler(w http.ResponseWriter, r *http.Request) {
	gatewayMetrics.mu.RLock()
	payload := map[string]interface{}{
		"uptime_seconds":   int64(time.Since(gatewayMetrics.startTime).Seconds()),
		"total_requests":   gatewayMetrics.totalRequests,
		"success_requests": gatewayMetrics.successRequests,
		"failed_requests":  gatewayMetrics.failedRequests,
		"rate_limited":     gatewayMetrics.rateLimited,
		"credit_blocked":   gatewayMetrics.creditBlocked,
		"daily_limited":    gatewayMetrics.dailyLimited,
	}
	gatewayMetrics.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
