package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/provider/ollama"
)

func newRequest(stream bool) *domain.SynthesisRequest {
	return &domain.SynthesisRequest{
		Query: "How many days of annual leave?",
		Chunks: []domain.ContextChunk{
			{ID: "c1", Text: "Employees receive 25 days of annual leave.", Relevance: 0.9},
		},
		Params: domain.GenerationParams{Temperature: 0.1, MaxTokens: 64, Stream: stream},
	}
}

func newProvider(t *testing.T, url string) *ollama.Provider {
	t.Helper()
	provider, err := ollama.NewProvider(ollama.Config{BaseURL: url}, "local", "llama3")
	require.NoError(t, err)
	return provider
}

func collect(outcome domain.GenerationOutcome) ([]string, []domain.StreamChunk) {
	var deltas []string
	var chunks []domain.StreamChunk
	for chunk := range outcome.Stream() {
		chunks = append(chunks, chunk)
		if chunk.Delta != "" {
			deltas = append(deltas, chunk.Delta)
		}
	}
	return deltas, chunks
}

func ndjsonLine(content string, done bool) string {
	return fmt.Sprintf(`{"model":"llama3","message":{"role":"assistant","content":%q},"done":%t}`+"\n", content, done)
}

func TestNewProvider(t *testing.T) {
	t.Run("should require a model", func(t *testing.T) {
		_, err := ollama.NewProvider(ollama.Config{}, "local", "")
		require.Error(t, err)
	})

	t.Run("should default the name", func(t *testing.T) {
		provider, err := ollama.NewProvider(ollama.Config{}, "", "llama3")
		require.NoError(t, err)
		require.Equal(t, "ollama", provider.Name())
	})
}

func TestProvider_Generate_Text(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant",` +
			`"content":"Employees receive 25 days of annual leave."},"done":true,` +
			`"prompt_eval_count":30,"eval_count":9}`))
	}))
	defer server.Close()

	outcome, err := newProvider(t, server.URL).Generate(context.Background(), newRequest(false))

	require.NoError(t, err)
	require.Equal(t, domain.OutcomeText, outcome.Kind())
	require.Equal(t, "Employees receive 25 days of annual leave.", outcome.Text())
	require.Equal(t, 39, outcome.Usage().TotalTokens)

	require.Equal(t, "llama3", received["model"])
	require.Equal(t, false, received["stream"])
	options, ok := received["options"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 64, options["num_predict"])
}

func TestProvider_Generate_EmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ndjsonLine("", true)))
	}))
	defer server.Close()

	outcome, err := newProvider(t, server.URL).Generate(context.Background(), newRequest(false))

	require.NoError(t, err)
	require.Equal(t, domain.OutcomeEmpty, outcome.Kind())
}

func TestProvider_Generate_Stream(t *testing.T) {
	t.Run("should relay fragments and final usage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			fmt.Fprint(w, ndjsonLine("Employees ", false))
			fmt.Fprint(w, ndjsonLine("receive ", false))
			fmt.Fprint(w, ndjsonLine("25 days.", false))
			fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":""},"done":true,`+
				`"done_reason":"stop","prompt_eval_count":30,"eval_count":6}`+"\n")
		}))
		defer server.Close()

		outcome, err := newProvider(t, server.URL).Generate(context.Background(), newRequest(true))
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeStream, outcome.Kind())

		deltas, chunks := collect(outcome)
		require.Equal(t, []string{"Employees ", "receive ", "25 days."}, deltas)
		last := chunks[len(chunks)-1]
		require.NoError(t, last.Err)
		require.Equal(t, 36, last.Usage.TotalTokens)
	})

	t.Run("should report an error line", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, ndjsonLine("Employees ", false))
			fmt.Fprint(w, `{"error":"model runner crashed"}`+"\n")
		}))
		defer server.Close()

		outcome, err := newProvider(t, server.URL).Generate(context.Background(), newRequest(true))
		require.NoError(t, err)

		deltas, chunks := collect(outcome)
		require.Equal(t, []string{"Employees "}, deltas)
		require.ErrorIs(t, chunks[len(chunks)-1].Err, domain.ErrProviderError)
		require.Contains(t, chunks[len(chunks)-1].Err.Error(), "model runner crashed")
	})

	t.Run("should report a stream that ends without done", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, ndjsonLine("Employees ", false))
		}))
		defer server.Close()

		outcome, err := newProvider(t, server.URL).Generate(context.Background(), newRequest(true))
		require.NoError(t, err)

		_, chunks := collect(outcome)
		require.Error(t, chunks[len(chunks)-1].Err)
	})
}

func TestProvider_Generate_Errors(t *testing.T) {
	t.Run("should classify a server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newProvider(t, server.URL).Generate(context.Background(), newRequest(false))

		var providerErr *domain.ProviderError
		require.True(t, errors.As(err, &providerErr))
		require.Equal(t, http.StatusNotFound, providerErr.Status)
		require.False(t, providerErr.Temporary)
		require.Contains(t, err.Error(), "model not found")
	})

	t.Run("should classify an unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := newProvider(t, url).Generate(context.Background(), newRequest(true))

		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrProviderError)
	})

	t.Run("should honor an expired deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(ndjsonLine("late", true)))
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()

		_, err := newProvider(t, server.URL).Generate(ctx, newRequest(false))

		require.Error(t, err)
		require.True(t, domain.IsTimeout(err))
	})
}
