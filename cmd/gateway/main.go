// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the Swarms billing gateway.
//
// The gateway is the server-side metering and billing plane:
// - Credit ledger with free and paid balances
// - Per-minute rate limiting and daily publishing quotas
// - Monthly Stripe invoicing for invoice-plan accounts
// - On-chain token payment confirmation
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	DATABASE_URL - PostgreSQL connection string
//	REDIS_URL - Redis URL (optional)
//	STRIPE_SECRET_KEY - Stripe API key
//	SOLANA_RPC_URL - Solana JSON-RPC endpoint (optional)
//	JWT_SECRET - HS256 secret for account endpoints
package main

import (
	"swarms/platform/gateway"
)

func main() {
	gateway.Run()
}
