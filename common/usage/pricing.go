// Copyright 2025 Swarms Platform
// SPDX-License-Identifier: Apache-2.0

package usage

import (
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Model pricing as of mid 2025
// Prices stored in cents per 1K tokens to avoid floating point issues
// All prices are USD

// ModelPricing contains pricing for a specific model
type ModelPricing struct {
	InputCostPer1K  int `yaml:"input_cost_per_1k"`  // cents per 1K input tokens
	OutputCostPer1K int `yaml:"output_cost_per_1k"` // cents per 1K output tokens
}

var pricingMu sync.RWMutex

// modelPricing maps model names to pricing
var modelPricing = map[string]ModelPricing{
	"gpt-4o":            {250, 1000}, // $0.0025/$0.01 per 1K tokens
	"gpt-4o-mini":       {15, 60},    // $0.00015/$0.0006 per 1K tokens
	"gpt-4-turbo":       {1000, 3000},
	"claude-3-5-sonnet": {300, 1500},
	"claude-3-haiku":    {25, 125},
	"llama-3-70b":       {60, 80},

	// Default fallback pricing (conservative estimate)
	"default": {1000, 3000},
}

// CalculateCost calculates the cost in cents for a model request
// Returns cost in cents (integer) to avoid floating point precision issues
func CalculateCost(model string, inputTokens, outputTokens int) int {
	pricingMu.RLock()
	pricing, ok := modelPricing[model]
	if !ok {
		pricing = modelPricing["default"]
	}
	pricingMu.RUnlock()

	inputCost := (inputTokens * pricing.InputCostPer1K) / 1000
	outputCost := (outputTokens * pricing.OutputCostPer1K) / 1000

	return inputCost + outputCost
}

// CostToUSD converts a cost in cents to a decimal dollar amount
func CostToUSD(cents int) decimal.Decimal {
	return decimal.New(int64(cents), -2)
}

// GetModelPricing returns the pricing for a model
func GetModelPricing(model string) (ModelPricing, bool) {
	pricingMu.RLock()
	defer pricingMu.RUnlock()
	pricing, ok := modelPricing[model]
	return pricing, ok
}

// FormatCostToDollars converts cents to a dollar string (e.g. 135 -> "$1.35")
func FormatCostToDollars(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100.0)
}

// LoadPricingFile merges per-model overrides from a YAML file into the
// built-in pricing table. Call before serving traffic.
func LoadPricingFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pricing file: %w", err)
	}

	var overrides map[string]ModelPricing
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse pricing file: %w", err)
	}

	pricingMu.Lock()
	for model, pricing := range overrides {
		modelPricing[model] = pricing
	}
	pricingMu.Unlock()
	return nil
}
