// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ChainVerifier checks that a signature corresponds to a confirmed
// token transfer into the treasury
type ChainVerifier interface {
	// VerifyTransfer confirms the transaction exists, succeeded, and
	// moved exactly amount of cfg.TokenMint to cfg.TreasuryAddress
	VerifyTransfer(ctx context.Context, signature string, amount decimal.Decimal) error
}

// RPCClient verifies payments against a Solana JSON-RPC node
type RPCClient struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
}

// NewRPCClient creates a Solana RPC verifier
func NewRPCClient(baseURL string, cfg Config) *RPCClient {
	return &RPCClient{
		baseURL: baseURL,
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result *txResult `json:"result"`
	Error  *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type txResult struct {
	Meta *txMeta `json:"meta"`
}

type txMeta struct {
	Err               interface{}    `json:"err"`
	PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
	PostTokenBalances []tokenBalance `json:"postTokenBalances"`
}

type tokenBalance struct {
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		UIAmountString string `json:"uiAmountString"`
	} `json:"uiTokenAmount"`
}

// VerifyTransfer fetches the transaction and checks the treasury's
// token balance delta. The delta must equal the claimed amount exactly:
// partial or padded transfers are rejected.
func (c *RPCClient) VerifyTransfer(ctx context.Context, signature string, amount decimal.Decimal) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTransaction",
		Params: []interface{}{
			signature,
			map[string]interface{}{
				"encoding":                       "jsonParsed",
				"commitment":                     "confirmed",
				"maxSupportedTransactionVersion": 0,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc returned status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil || rpcResp.Result.Meta == nil {
		return ErrNotConfirmed
	}
	if rpcResp.Result.Meta.Err != nil {
		return ErrTransactionFailed
	}

	delta, err := c.treasuryDelta(rpcResp.Result.Meta)
	if err != nil {
		return err
	}
	if !delta.Equal(amount) {
		return ErrTransferMismatch
	}
	return nil
}

// treasuryDelta computes how much of the accepted mint the treasury
// gained in this transaction
func (c *RPCClient) treasuryDelta(meta *txMeta) (decimal.Decimal, error) {
	pre, err := c.treasuryBalance(meta.PreTokenBalances)
	if err != nil {
		return decimal.Zero, err
	}
	post, err := c.treasuryBalance(meta.PostTokenBalances)
	if err != nil {
		return decimal.Zero, err
	}
	return post.Sub(pre), nil
}

func (c *RPCClient) treasuryBalance(balances []tokenBalance) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, b := range balances {
		if b.Mint != c.cfg.TokenMint || b.Owner != c.cfg.TreasuryAddress {
			continue
		}
		amount, err := decimal.NewFromString(b.UITokenAmount.UIAmountString)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse token balance: %w", err)
		}
		total = total.Add(amount)
	}
	return total, nil
}
