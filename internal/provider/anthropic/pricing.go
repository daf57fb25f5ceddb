package anthropic

import (
	"context"
	"fmt"

	"github.com/davidbz/synthd/internal/domain"
)

const (
	// Claude Sonnet 4 pricing per 1K tokens
	sonnet4InputCostPer1K  = 0.003
	sonnet4OutputCostPer1K = 0.015

	// Claude Opus 4 pricing per 1K tokens
	opus4InputCostPer1K  = 0.015
	opus4OutputCostPer1K = 0.075

	// Claude Haiku 3.5 pricing per 1K tokens
	haiku35InputCostPer1K  = 0.0008
	haiku35OutputCostPer1K = 0.004
)

// RegisterPricing registers Claude model pricing with the registry.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	models := map[string]domain.PricingConfig{
		"claude-sonnet-4-20250514": {
			InputCostPer1K:  sonnet4InputCostPer1K,
			OutputCostPer1K: sonnet4OutputCostPer1K,
		},
		"claude-opus-4-20250514": {
			InputCostPer1K:  opus4InputCostPer1K,
			OutputCostPer1K: opus4OutputCostPer1K,
		},
		"claude-3-5-haiku-20241022": {
			InputCostPer1K:  haiku35InputCostPer1K,
			OutputCostPer1K: haiku35OutputCostPer1K,
		},
	}

	if err := domain.RegisterTable(ctx, registry, models); err != nil {
		return fmt.Errorf("failed to register anthropic pricing: %w", err)
	}
	return nil
}
