// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

func priceServer(t *testing.T, price string, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if got := r.URL.Query().Get("ids"); got != "swarms" {
			t.Errorf("unexpected token id %q", got)
		}
		fmt.Fprintf(w, `{"swarms":{"usd":%s}}`, price)
	}))
}

func TestSpotPriceUSD(t *testing.T) {
	hits := 0
	srv := priceServer(t, "0.0321", &hits)
	defer srv.Close()

	client := NewPriceClient(srv.URL, "swarms", nil)

	price, err := client.SpotPriceUSD(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !price.Equal(decimal.NewFromFloat(0.0321)) {
		t.Errorf("expected 0.0321, got %s", price)
	}
}

func TestSpotPriceUSDCached(t *testing.T) {
	hits := 0
	srv := priceServer(t, "0.5", &hits)
	defer srv.Close()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := NewPriceClient(srv.URL, "swarms", rdb)

	for i := 0; i < 3; i++ {
		price, err := client.SpotPriceUSD(context.Background())
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if !price.Equal(decimal.NewFromFloat(0.5)) {
			t.Errorf("call %d: expected 0.5, got %s", i, price)
		}
	}

	if hits != 1 {
		t.Errorf("expected one upstream fetch, got %d", hits)
	}
}

func TestSpotPriceUSDMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	client := NewPriceClient(srv.URL, "swarms", nil)

	if _, err := client.SpotPriceUSD(context.Background()); err != ErrPriceUnavailable {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestSpotPriceUSDUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewPriceClient(srv.URL, "swarms", nil)

	if _, err := client.SpotPriceUSD(context.Background()); err == nil {
		t.Error("expected an error from a failing upstream")
	}
}
