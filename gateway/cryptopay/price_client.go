// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	priceCacheKey = "cryptopay:spot_price"
	priceCacheTTL = 30 * time.Second
)

// PriceSource returns the current USD spot price of the accepted token
type PriceSource interface {
	SpotPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// PriceClient fetches the token spot price from a CoinGecko-style
// simple-price endpoint. A short Redis cache keeps bursts of payment
// confirmations from hammering the upstream.
type PriceClient struct {
	baseURL    string
	tokenID    string
	httpClient *http.Client
	rdb        *redis.Client
}

// NewPriceClient creates a spot price client. rdb may be nil to
// disable caching.
func NewPriceClient(baseURL, tokenID string, rdb *redis.Client) *PriceClient {
	return &PriceClient{
		baseURL: baseURL,
		tokenID: tokenID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rdb: rdb,
	}
}

// SpotPriceUSD returns the token's current USD price
func (c *PriceClient) SpotPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, priceCacheKey).Result(); err == nil {
			if price, perr := decimal.NewFromString(cached); perr == nil {
				return price, nil
			}
		}
	}

	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.baseURL, c.tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var payload map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}

	raw, ok := payload[c.tokenID]["usd"]
	if !ok {
		return decimal.Zero, ErrPriceUnavailable
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price: %w", err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, ErrPriceUnavailable
	}

	if c.rdb != nil {
		// Best effort, a cold cache just means an extra fetch
		_ = c.rdb.Set(ctx, priceCacheKey, price.String(), priceCacheTTL).Err()
	}
	return price, nil
}
