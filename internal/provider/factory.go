// Package provider builds generation adapters from provider descriptors.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
	"github.com/davidbz/synthd/internal/provider/anthropic"
	"github.com/davidbz/synthd/internal/provider/echo"
	"github.com/davidbz/synthd/internal/provider/gemini"
	"github.com/davidbz/synthd/internal/provider/ollama"
	"github.com/davidbz/synthd/internal/provider/openai"
)

// Provider kinds accepted in descriptors.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
	KindOllama    = "ollama"
	KindEcho      = "echo"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

// Configs groups the credentials and endpoints of every backend kind.
type Configs struct {
	OpenAI    openai.Config
	Anthropic anthropic.Config
	Gemini    gemini.Config
	Ollama    ollama.Config
	Echo      echo.Config
}

// New builds the adapter described by descriptor. It returns
// ErrProviderNotConfigured when the backend has no credentials.
func New(ctx context.Context, descriptor domain.ProviderDescriptor, configs Configs) (domain.Provider, error) {
	switch descriptor.Kind {
	case KindOpenAI:
		if configs.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", descriptor.Name, ErrProviderNotConfigured)
		}
		return openai.NewProvider(configs.OpenAI, descriptor.Name, descriptor.Model)
	case KindAnthropic:
		if configs.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", descriptor.Name, ErrProviderNotConfigured)
		}
		return anthropic.NewProvider(configs.Anthropic, descriptor.Name, descriptor.Model)
	case KindGemini:
		if configs.Gemini.APIKey == "" {
			return nil, fmt.Errorf("%s: %w", descriptor.Name, ErrProviderNotConfigured)
		}
		return gemini.NewProvider(ctx, configs.Gemini, descriptor.Name, descriptor.Model)
	case KindOllama:
		if configs.Ollama.BaseURL == "" {
			return nil, fmt.Errorf("%s: %w", descriptor.Name, ErrProviderNotConfigured)
		}
		return ollama.NewProvider(configs.Ollama, descriptor.Name, descriptor.Model)
	case KindEcho:
		return echo.NewProvider(configs.Echo, descriptor.Name), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q for %s", descriptor.Kind, descriptor.Name)
	}
}

// Populate builds and registers every descriptor. Unconfigured providers are
// logged and left out; any other failure aborts.
func Populate(
	ctx context.Context,
	registry domain.ProviderRegistry,
	descriptors []domain.ProviderDescriptor,
	configs Configs,
) error {
	logger := observability.FromContext(ctx)

	registered := 0
	for _, descriptor := range descriptors {
		adapter, err := New(ctx, descriptor, configs)
		if errors.Is(err, ErrProviderNotConfigured) {
			logger.Warn("provider not configured, skipping",
				observability.String("provider", descriptor.Name),
				observability.String("kind", descriptor.Kind))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to build provider %s: %w", descriptor.Name, err)
		}

		if err := registry.Register(ctx, descriptor, adapter); err != nil {
			return fmt.Errorf("failed to register provider %s: %w", descriptor.Name, err)
		}
		registered++

		logger.Info("provider registered",
			observability.String("provider", descriptor.Name),
			observability.String("kind", descriptor.Kind),
			observability.String("model", descriptor.Model),
			observability.Int("priority", descriptor.Priority))
	}

	if registered == 0 {
		return errors.New("no providers configured")
	}

	return nil
}

// RegisterPricing loads the pricing tables of every backend kind.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	for _, register := range []func(context.Context, domain.PricingRegistry) error{
		openai.RegisterPricing,
		anthropic.RegisterPricing,
		gemini.RegisterPricing,
		echo.RegisterPricing,
	} {
		if err := register(ctx, registry); err != nil {
			return err
		}
	}
	return nil
}
