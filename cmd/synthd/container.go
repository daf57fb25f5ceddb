package main

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/synthd/internal/circuit"
	"github.com/davidbz/synthd/internal/config"
	"github.com/davidbz/synthd/internal/domain"
	eventsredis "github.com/davidbz/synthd/internal/events/redis"
	"github.com/davidbz/synthd/internal/observability"
	"github.com/davidbz/synthd/internal/provider"
	"github.com/davidbz/synthd/internal/provider/registry"
	"github.com/davidbz/synthd/internal/routing"
)

// closer releases resources acquired while building the container.
type closer func() error

func buildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []struct {
		name        string
		constructor interface{}
	}{
		// Configuration
		{"config", config.Load},
		{"config dependencies", config.ParseDependenciesConfig},
		{"provider descriptors", config.LoadProviders},

		// Observability
		{"logger", func(cfg *observability.LoggerConfig) (*zap.Logger, error) {
			return observability.InitLogger(*cfg)
		}},
		{"event publisher", newEventPublisher},

		// Availability tracking
		{"circuit breaker", func(cfg *circuit.Config, events domain.EventPublisher) *circuit.Breaker {
			return circuit.NewBreaker(*cfg, circuit.WithEventPublisher(events))
		}},
		{"circuit breaker interface", func(b *circuit.Breaker) domain.CircuitBreaker { return b }},

		// Provider Registry
		{"registry", func() domain.ProviderRegistry { return registry.NewRegistry() }},
		{"pricing registry", func() domain.PricingRegistry { return domain.NewInMemoryPricingRegistry() }},
		{"cost calculator", func(pricing domain.PricingRegistry) domain.CostCalculator {
			return domain.NewStandardCostCalculator(pricing)
		}},
		{"router", func(reg domain.ProviderRegistry) domain.Router { return routing.NewRouter(reg) }},

		// Domain Services
		{"citation extractor", func(cfg *domain.CitationConfig) domain.CitationExtractor {
			return domain.NewOverlapCitationExtractor(*cfg)
		}},
		{"confidence scorer", func(cfg *domain.ConfidenceWeights) domain.ConfidenceScorer {
			return domain.NewWeightedConfidenceScorer(*cfg)
		}},
		{"synthesizer", func(
			router domain.Router,
			breaker domain.CircuitBreaker,
			extractor domain.CitationExtractor,
			scorer domain.ConfidenceScorer,
			costs domain.CostCalculator,
			events domain.EventPublisher,
			cfg *domain.SynthesisConfig,
		) *domain.Synthesizer {
			return domain.NewSynthesizer(router, breaker, extractor, scorer, costs, events, *cfg)
		}},
	}

	for _, p := range providers {
		if err := container.Provide(p.constructor); err != nil {
			return nil, fmt.Errorf("failed to provide %s: %w", p.name, err)
		}
	}

	// Register providers and pricing with the registries (invoked for side effects)
	if err := container.Invoke(func(
		reg domain.ProviderRegistry,
		pricing domain.PricingRegistry,
		descriptors []domain.ProviderDescriptor,
		backends provider.Configs,
		_ *zap.Logger,
	) error {
		ctx := context.Background()

		if err := provider.RegisterPricing(ctx, pricing); err != nil {
			return err
		}

		return provider.Populate(ctx, reg, descriptors, backends)
	}); err != nil {
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	return container, nil
}

type eventPublisherResult struct {
	dig.Out
	Publisher domain.EventPublisher
	Close     closer
}

// newEventPublisher publishes to Redis when configured, and always to the log.
func newEventPublisher(cfg *eventsredis.Config, logger *zap.Logger) (eventPublisherResult, error) {
	bus := observability.NewEventBus(logger)
	if !cfg.Enabled() {
		return eventPublisherResult{Publisher: bus, Close: func() error { return nil }}, nil
	}

	client, err := eventsredis.NewClient(*cfg)
	if err != nil {
		return eventPublisherResult{}, err
	}

	publisher, err := eventsredis.NewPublisher(client, *cfg, bus)
	if err != nil {
		_ = client.Close()
		return eventPublisherResult{}, err
	}

	if err := publisher.Ping(context.Background()); err != nil {
		logger.Warn("redis events unavailable, publishing will be retried per event",
			zap.String("addr", cfg.Addr),
			zap.Error(err))
	}

	return eventPublisherResult{Publisher: publisher, Close: publisher.Close}, nil
}
