package gemini

import (
	"context"
	"fmt"

	"github.com/davidbz/synthd/internal/domain"
)

const (
	// Gemini 2.5 Pro pricing per 1K tokens
	gemini25ProInputCostPer1K  = 0.00125
	gemini25ProOutputCostPer1K = 0.01

	// Gemini 2.5 Flash pricing per 1K tokens
	gemini25FlashInputCostPer1K  = 0.0003
	gemini25FlashOutputCostPer1K = 0.0025

	// Gemini 2.0 Flash pricing per 1K tokens
	gemini20FlashInputCostPer1K  = 0.0001
	gemini20FlashOutputCostPer1K = 0.0004
)

// RegisterPricing registers Gemini model pricing with the registry.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	models := map[string]domain.PricingConfig{
		"gemini-2.5-pro": {
			InputCostPer1K:  gemini25ProInputCostPer1K,
			OutputCostPer1K: gemini25ProOutputCostPer1K,
		},
		"gemini-2.5-flash": {
			InputCostPer1K:  gemini25FlashInputCostPer1K,
			OutputCostPer1K: gemini25FlashOutputCostPer1K,
		},
		"gemini-2.0-flash": {
			InputCostPer1K:  gemini20FlashInputCostPer1K,
			OutputCostPer1K: gemini20FlashOutputCostPer1K,
		},
	}

	if err := domain.RegisterTable(ctx, registry, models); err != nil {
		return fmt.Errorf("failed to register gemini pricing: %w", err)
	}
	return nil
}
