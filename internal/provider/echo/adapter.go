// Package echo provides a deterministic in-process provider for development
// and tests. It answers by quoting the most relevant context chunk, so the
// rest of the pipeline (citations, confidence) behaves as with a real model,
// without making external API calls.
package echo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo4"
	chunkDelay   = 10 * time.Millisecond
)

// Config contains echo provider settings.
type Config struct {
	// ChunkDelay paces streamed words; negative disables pacing.
	ChunkDelay time.Duration `env:"ECHO_CHUNK_DELAY" envDefault:"10ms"`
}

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	name       string
	chunkDelay time.Duration
}

// NewProvider creates a new echo provider.
// No credentials are required as this provider operates entirely in-memory.
func NewProvider(config Config, name string) *Provider {
	if name == "" {
		name = providerName
	}

	delay := config.ChunkDelay
	switch {
	case delay == 0:
		delay = chunkDelay
	case delay < 0:
		delay = 0
	}

	return &Provider{
		name:       name,
		chunkDelay: delay,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Generate builds the echoed answer and returns it whole, or word by word
// when streaming is requested.
func (p *Provider) Generate(ctx context.Context, req *domain.SynthesisRequest) (domain.GenerationOutcome, error) {
	if req == nil {
		return domain.EmptyOutcome(), errors.New("request cannot be nil")
	}

	if err := ctx.Err(); err != nil {
		return domain.EmptyOutcome(), err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request", observability.Bool("stream", req.Params.Stream))

	content := buildEchoContent(req)

	// Count tokens (simple word-based counting)
	promptTokens := countTokens(req.Query)
	for _, chunk := range req.Chunks {
		promptTokens += countTokens(chunk.Text)
	}
	completionTokens := countTokens(content)
	usage := &domain.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}

	if !req.Params.Stream {
		return domain.TextOutcome(content, usage), nil
	}

	words := strings.Fields(content)
	if len(words) == 0 {
		return domain.EmptyOutcome(), nil
	}

	chunks := make(chan domain.StreamChunk)
	go p.stream(ctx, words, usage, chunks)

	return domain.StreamOutcome(chunks), nil
}

func (p *Provider) stream(ctx context.Context, words []string, usage *domain.Usage, chunks chan<- domain.StreamChunk) {
	defer close(chunks)

	for i, word := range words {
		delta := word
		if i < len(words)-1 {
			delta += " " // Add space between words
		}

		select {
		case <-ctx.Done():
			return
		case chunks <- domain.StreamChunk{Delta: delta}:
		}

		if p.chunkDelay > 0 && i < len(words)-1 {
			timer := time.NewTimer(p.chunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}

	select {
	case <-ctx.Done():
	case chunks <- domain.StreamChunk{Usage: usage}:
	}
}

// buildEchoContent quotes the most relevant chunk, or echoes the query when
// there is no context.
func buildEchoContent(req *domain.SynthesisRequest) string {
	if len(req.Chunks) == 0 {
		return strings.TrimSpace(req.Query)
	}

	best := req.Chunks[0]
	for _, chunk := range req.Chunks[1:] {
		if chunk.Relevance > best.Relevance {
			best = chunk
		}
	}
	return strings.TrimSpace(best.Text)
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
