package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

// FallbackRouter builds the fallback chain from the registry order.
type FallbackRouter struct {
	registry domain.ProviderRegistry
}

// NewRouter creates a new router.
func NewRouter(registry domain.ProviderRegistry) *FallbackRouter {
	return &FallbackRouter{
		registry: registry,
	}
}

// Plan returns every registered provider in priority order, minus those whose
// context window cannot hold the estimated prompt.
func (r *FallbackRouter) Plan(ctx context.Context, req *domain.SynthesisRequest) ([]domain.Candidate, []domain.SkippedProvider, error) {
	if req == nil {
		return nil, nil, errors.New("synthesis request cannot be nil")
	}

	candidates, err := r.registry.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list providers: %w", err)
	}

	logger := observability.FromContext(ctx)
	if len(candidates) == 0 {
		logger.Warn("no providers registered")
		return []domain.Candidate{}, nil, nil
	}

	promptTokens := domain.EstimateTokens(req)

	planned := make([]domain.Candidate, 0, len(candidates))
	var skipped []domain.SkippedProvider
	for _, candidate := range candidates {
		limit := candidate.Descriptor.MaxContextTokens
		if limit > 0 && promptTokens > limit {
			logger.Info("provider skipped",
				observability.String("provider", candidate.Descriptor.Name),
				observability.Int("prompt_tokens", promptTokens),
				observability.Int("max_context_tokens", limit))
			skipped = append(skipped, domain.SkippedProvider{
				Provider: candidate.Descriptor.Name,
				Reason:   domain.SkipContextWindow,
			})
			continue
		}
		planned = append(planned, candidate)
	}

	return planned, skipped, nil
}
