package echo

import (
	"context"
	"fmt"

	"github.com/davidbz/synthd/internal/domain"
)

// ModelName is the model identifier echo reports for pricing lookups.
const ModelName = modelName

// RegisterPricing registers echo at zero cost so usage still flows through
// the cost calculator like any remote backend.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	if err := domain.RegisterTable(ctx, registry, map[string]domain.PricingConfig{
		modelName: {},
	}); err != nil {
		return fmt.Errorf("failed to register echo pricing: %w", err)
	}
	return nil
}
