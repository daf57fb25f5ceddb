package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/provider"
)

// ProvidersConfig locates the fallback chain definition.
type ProvidersConfig struct {
	// File is a YAML provider list. The built-in chain is used when empty.
	File           string        `env:"PROVIDERS_FILE"`
	DefaultTimeout time.Duration `env:"PROVIDER_DEFAULT_TIMEOUT" envDefault:"30s"`
}

// ProvidersFile is the YAML layout of PROVIDERS_FILE.
type ProvidersFile struct {
	Providers []ProviderEntry `yaml:"providers"`
}

// ProviderEntry describes one provider in the YAML file.
type ProviderEntry struct {
	Name              string        `yaml:"name"`
	Kind              string        `yaml:"kind"`
	Model             string        `yaml:"model,omitempty"`
	Priority          int           `yaml:"priority"`
	SupportsStreaming *bool         `yaml:"supports_streaming,omitempty"`
	MaxContextTokens  int           `yaml:"max_context_tokens,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
}

// DefaultProviders returns the built-in fallback chain. Providers without
// credentials are skipped at registration, leaving echo as the last resort.
func DefaultProviders() []ProviderEntry {
	return []ProviderEntry{
		{Name: "openai", Kind: provider.KindOpenAI, Model: "gpt-4o-mini", Priority: 10, MaxContextTokens: 128000},
		{Name: "anthropic", Kind: provider.KindAnthropic, Model: "claude-3-5-haiku-20241022", Priority: 20, MaxContextTokens: 200000},
		{Name: "gemini", Kind: provider.KindGemini, Model: "gemini-2.5-flash", Priority: 30, MaxContextTokens: 1000000},
		{Name: "echo", Kind: provider.KindEcho, Model: "echo4", Priority: 100},
	}
}

// LoadProviders resolves provider descriptors from the configured file, or
// the built-in chain when no file is set.
func LoadProviders(cfg *ProvidersConfig) ([]domain.ProviderDescriptor, error) {
	entries := DefaultProviders()

	if cfg.File != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read providers file: %w", err)
		}

		var file ProvidersFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse providers file: %w", err)
		}

		if len(file.Providers) == 0 {
			return nil, fmt.Errorf("providers file %s lists no providers", cfg.File)
		}
		entries = file.Providers
	}

	return toDescriptors(entries, cfg.DefaultTimeout)
}

func toDescriptors(entries []ProviderEntry, defaultTimeout time.Duration) ([]domain.ProviderDescriptor, error) {
	seen := make(map[string]struct{}, len(entries))
	descriptors := make([]domain.ProviderDescriptor, 0, len(entries))

	for i, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("provider #%d has no name", i+1)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("duplicate provider name: %s", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		if entry.Kind == "" {
			return nil, fmt.Errorf("provider %s has no kind", entry.Name)
		}
		if entry.MaxContextTokens < 0 || entry.Timeout < 0 {
			return nil, errors.New("provider " + entry.Name + " has negative limits")
		}

		timeout := entry.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}

		streaming := true
		if entry.SupportsStreaming != nil {
			streaming = *entry.SupportsStreaming
		}

		descriptors = append(descriptors, domain.ProviderDescriptor{
			Name:              entry.Name,
			Kind:              entry.Kind,
			Model:             entry.Model,
			Priority:          entry.Priority,
			SupportsStreaming: streaming,
			MaxContextTokens:  entry.MaxContextTokens,
			Timeout:           timeout,
		})
	}

	return descriptors, nil
}
