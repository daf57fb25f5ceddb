package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/synthd/internal/config"
)

func writeProviders(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProviders(t *testing.T) {
	t.Run("should return the built-in chain without a file", func(t *testing.T) {
		descriptors, err := config.LoadProviders(&config.ProvidersConfig{DefaultTimeout: 30 * time.Second})

		require.NoError(t, err)
		require.Len(t, descriptors, len(config.DefaultProviders()))
		require.Equal(t, "openai", descriptors[0].Name)
		require.Equal(t, "echo", descriptors[len(descriptors)-1].Name)
		for _, d := range descriptors {
			require.Equal(t, 30*time.Second, d.Timeout)
			require.True(t, d.SupportsStreaming)
		}
	})

	t.Run("should parse a providers file", func(t *testing.T) {
		path := writeProviders(t, `
providers:
  - name: primary
    kind: openai
    model: gpt-4o
    priority: 1
    max_context_tokens: 128000
    timeout: 20s
  - name: local
    kind: ollama
    model: llama3.2
    priority: 2
    supports_streaming: false
`)

		descriptors, err := config.LoadProviders(&config.ProvidersConfig{File: path, DefaultTimeout: 45 * time.Second})

		require.NoError(t, err)
		require.Len(t, descriptors, 2)

		require.Equal(t, "primary", descriptors[0].Name)
		require.Equal(t, "gpt-4o", descriptors[0].Model)
		require.Equal(t, 128000, descriptors[0].MaxContextTokens)
		require.Equal(t, 20*time.Second, descriptors[0].Timeout)
		require.True(t, descriptors[0].SupportsStreaming)

		require.Equal(t, "ollama", descriptors[1].Kind)
		require.Equal(t, 45*time.Second, descriptors[1].Timeout)
		require.False(t, descriptors[1].SupportsStreaming)
	})

	t.Run("should reject duplicate names", func(t *testing.T) {
		path := writeProviders(t, `
providers:
  - {name: a, kind: echo}
  - {name: a, kind: echo}
`)

		_, err := config.LoadProviders(&config.ProvidersConfig{File: path})

		require.ErrorContains(t, err, "duplicate provider name")
	})

	t.Run("should reject entries without a kind", func(t *testing.T) {
		path := writeProviders(t, "providers:\n  - name: a\n")

		_, err := config.LoadProviders(&config.ProvidersConfig{File: path})

		require.ErrorContains(t, err, "no kind")
	})

	t.Run("should reject an empty file", func(t *testing.T) {
		path := writeProviders(t, "providers: []\n")

		_, err := config.LoadProviders(&config.ProvidersConfig{File: path})

		require.ErrorContains(t, err, "lists no providers")
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, err := config.LoadProviders(&config.ProvidersConfig{File: filepath.Join(t.TempDir(), "missing.yaml")})

		require.Error(t, err)
	})
}
