package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/synthd/internal/circuit"
	"github.com/davidbz/synthd/internal/domain"
	eventsredis "github.com/davidbz/synthd/internal/events/redis"
	"github.com/davidbz/synthd/internal/observability"
	"github.com/davidbz/synthd/internal/provider"
	"github.com/davidbz/synthd/internal/provider/anthropic"
	"github.com/davidbz/synthd/internal/provider/echo"
	"github.com/davidbz/synthd/internal/provider/gemini"
	"github.com/davidbz/synthd/internal/provider/ollama"
	"github.com/davidbz/synthd/internal/provider/openai"
)

// Config represents the synthesis engine configuration.
type Config struct {
	Synthesis  domain.SynthesisConfig
	Citation   domain.CitationConfig
	Confidence domain.ConfidenceWeights
	Breaker    circuit.Config
	Providers  ProvidersConfig
	OpenAI     openai.Config
	Anthropic  anthropic.Config
	Gemini     gemini.Config
	Ollama     ollama.Config
	Echo       echo.Config
	Events     eventsredis.Config
	Logger     observability.LoggerConfig
	Telemetry  observability.TelemetryConfig
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	Synthesis  *domain.SynthesisConfig
	Citation   *domain.CitationConfig
	Confidence *domain.ConfidenceWeights
	Breaker    *circuit.Config
	Providers  *ProvidersConfig
	Events     *eventsredis.Config
	Logger     *observability.LoggerConfig
	Telemetry  *observability.TelemetryConfig
	Backends   provider.Configs
}

// Load loads environment files and parses configuration.
func Load() (*Config, error) {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Breaker.Threshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be at least 1, got %d", c.Breaker.Threshold)
	}

	if c.Breaker.Cooldown <= 0 {
		return fmt.Errorf("BREAKER_COOLDOWN must be positive, got %s", c.Breaker.Cooldown)
	}

	if c.Citation.MinOverlapChars < 1 || c.Citation.MinOverlapTokens < 1 {
		return fmt.Errorf("citation overlap thresholds must be positive, got %d chars / %d tokens",
			c.Citation.MinOverlapChars, c.Citation.MinOverlapTokens)
	}

	w := c.Confidence
	if w.Relevance < 0 || w.Coverage < 0 || w.Completeness < 0 {
		return fmt.Errorf("confidence weights cannot be negative: %+v", w)
	}

	return nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Synthesis:  &cfg.Synthesis,
		Citation:   &cfg.Citation,
		Confidence: &cfg.Confidence,
		Breaker:    &cfg.Breaker,
		Providers:  &cfg.Providers,
		Events:     &cfg.Events,
		Logger:     &cfg.Logger,
		Telemetry:  &cfg.Telemetry,
		Backends: provider.Configs{
			OpenAI:    cfg.OpenAI,
			Anthropic: cfg.Anthropic,
			Gemini:    cfg.Gemini,
			Ollama:    cfg.Ollama,
			Echo:      cfg.Echo,
		},
	}
}
