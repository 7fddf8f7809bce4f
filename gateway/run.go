// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the Swarms platform billing gateway: credit
// ledger, rate limiting, Stripe invoicing, and crypto payment
// confirmation behind one HTTP service.
package gateway

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"swarms/platform/common/usage"
	"swarms/platform/gateway/billing"
	"swarms/platform/gateway/credit"
	"swarms/platform/gateway/cryptopay"
	"swarms/platform/gateway/ratelimit"
)

// Service components
var (
	db             *sql.DB
	rdb            *redis.Client
	creditService  *credit.Service
	billingService *billing.Service
	cryptoService  *cryptopay.Service
	limiter        *ratelimit.Limiter
	dailyLimiter   *ratelimit.DailyLimiter
	recorder       *usage.Recorder
)

// Run is the exported entry point for the billing gateway service.
//
// It connects to PostgreSQL (and Redis when configured), wires up the
// credit, rate limit, billing, and crypto payment services, and serves
// HTTP until shut down.
//
// Environment variables used:
//   - PORT: HTTP server port (default: 8080)
//   - DATABASE_URL: PostgreSQL connection string (or DATABASE_HOST,
//     DATABASE_PORT, DATABASE_NAME, DATABASE_USER, DATABASE_PASSWORD,
//     DATABASE_SSLMODE)
//   - REDIS_URL: Redis connection URL (optional, enables the sliding
//     window limiter and price cache)
//   - REQUESTS_PER_MINUTE: per-user rate limit ceiling (default: 100)
//   - VIP_USERS: comma-separated user IDs with raised daily quotas
//   - PRICING_FILE: YAML file overriding the model pricing table
//   - JWT_SECRET: HS256 secret for account and billing endpoints
//   - STRIPE_SECRET_KEY: Stripe API key
//   - SOLANA_RPC_URL: Solana JSON-RPC endpoint
//   - SWARMS_TOKEN_MINT: SPL mint address of the accepted token
//   - DAO_TREASURY_ADDRESS: wallet that receives token payments
//   - PRICE_API_URL: spot price endpoint base URL
func Run() {
	log.Println("Starting Swarms billing gateway...")

	initializeComponents()

	r := mux.NewRouter()

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Health check
	r.HandleFunc("/health", healthHandler).Methods("GET")

	// Metrics endpoints
	r.HandleFunc("/metrics", simpleMetricsHandler).Methods("GET") // JSON metrics
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")    // Prometheus native format

	// Metered API-key traffic
	guard := NewGuard(db, creditService, limiter, dailyLimiter, recorder, requestsPerMinute())
	guard.RegisterRoutes(r)

	// Account and billing endpoints sit behind JWT auth when a secret
	// is configured
	accountRouter := r
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		sub := r.NewRoute().Subrouter()
		sub.Use(RequireJWT([]byte(secret)))
		accountRouter = sub
	} else {
		log.Println("WARNING: JWT_SECRET not set, account endpoints are unauthenticated")
	}

	credit.NewHandler(creditService).RegisterRoutes(accountRouter)
	billing.NewHandler(billingService).RegisterRoutes(accountRouter)
	cryptopay.NewHandler(cryptoService).RegisterRoutes(accountRouter)

	// Start server
	port := getEnv("PORT", "8080")
	handler := c.Handler(r)
	log.Printf("Swarms billing gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

func initializeComponents() {
	dbURL := databaseURL()
	if dbURL == "" {
		log.Fatal("DATABASE_URL (or DATABASE_HOST/DATABASE_PASSWORD) must be set")
	}

	var err error
	db, err = sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connected")

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, continuing without Redis: %v", err)
		} else {
			rdb = redis.NewClient(opts)
			log.Println("Redis connected, sliding window rate limiting enabled")
		}
	}

	if pricingFile := os.Getenv("PRICING_FILE"); pricingFile != "" {
		if err := usage.LoadPricingFile(pricingFile); err != nil {
			log.Printf("Warning: failed to load pricing file: %v", err)
		} else {
			log.Printf("Loaded pricing overrides from %s", pricingFile)
		}
	}

	creditService = credit.NewService(credit.NewPostgresRepository(db))

	store := ratelimit.NewPostgresStore(db)
	if rdb != nil {
		limiter = ratelimit.NewLimiterWithRedis(store, rdb)
	} else {
		limiter = ratelimit.NewLimiter(store)
	}
	dailyLimiter = ratelimit.NewDailyLimiter(store, ratelimit.ParseVIPList(os.Getenv("VIP_USERS")))

	recorder = usage.NewRecorder(db)

	stripeClient := billing.NewAPIClient(os.Getenv("STRIPE_SECRET_KEY"))
	billingService = billing.NewService(billing.NewPostgresRepository(db), stripeClient)

	chainCfg := cryptopay.Config{
		TokenMint:       os.Getenv("SWARMS_TOKEN_MINT"),
		TreasuryAddress: os.Getenv("DAO_TREASURY_ADDRESS"),
	}
	verifier := cryptopay.NewRPCClient(getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"), chainCfg)
	price := cryptopay.NewPriceClient(getEnv("PRICE_API_URL", "https://api.coingecko.com"),
		getEnv("PRICE_TOKEN_ID", "swarms"), rdb)
	cryptoService = cryptopay.NewService(cryptopay.NewPostgresRepository(db), verifier, price, creditService)
}

// databaseURL builds the connection string from separate env vars
// (12-Factor style), falling back to DATABASE_URL
func databaseURL() string {
	dbHost := os.Getenv("DATABASE_HOST")
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbHost == "" || dbPassword == "" {
		return os.Getenv("DATABASE_URL")
	}

	dbPort := getEnv("DATABASE_PORT", "5432")
	dbName := getEnv("DATABASE_NAME", "swarms")
	dbUser := getEnv("DATABASE_USER", "swarms_app")
	dbSSLMode := getEnv("DATABASE_SSLMODE", "require")

	// URL-encode credentials to handle special characters
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(dbUser), url.QueryEscape(dbPassword), dbHost, dbPort, dbName, dbSSLMode)
}

func requestsPerMinute() int {
	value := os.Getenv("REQUESTS_PER_MINUTE")
	if value == "" {
		return ratelimit.DefaultRequestsPerMinute
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid REQUESTS_PER_MINUTE %q, using default", value)
		return ratelimit.DefaultRequestsPerMinute
	}
	return n
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	components := map[string]bool{
		"credit":  creditService.IsHealthy(ctx),
		"billing": billingService.IsHealthy(ctx),
		"crypto":  cryptoService.IsHealthy(ctx),
	}
	if rdb != nil {
		components["redis"] = rdb.Ping(ctx).Err() == nil
	}

	status := "healthy"
	code := http.StatusOK
	for _, ok := range components {
		if !ok {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	health := map[string]interface{}{
		"status":     status,
		"service":    "swarms-billing-gateway",
		"version":    "1.0.0",
		"timestamp":  time.Now().UTC(),
		"components": components,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("Failed to encode health response: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
