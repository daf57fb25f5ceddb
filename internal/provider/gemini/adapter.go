// Package gemini adapts Google Gemini models to domain.Provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

// Provider implements domain.Provider for Gemini models.
type Provider struct {
	client *genai.Client
	name   string
	model  string
}

// NewProvider creates a new Gemini provider serving a single model.
func NewProvider(ctx context.Context, config Config, name, model string) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("google API key is required")
	}

	if model == "" {
		return nil, errors.New("gemini model is required")
	}

	if name == "" {
		name = "gemini"
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &Provider{
		client: client,
		name:   name,
		model:  model,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Generate sends the request to GenerateContent, or GenerateContentStream
// when streaming is requested.
func (p *Provider) Generate(ctx context.Context, req *domain.SynthesisRequest) (domain.GenerationOutcome, error) {
	if req == nil {
		return domain.EmptyOutcome(), errors.New("request cannot be nil")
	}

	contents, config := p.toSDKParams(req)
	if req.Params.Stream {
		return p.stream(ctx, contents, config)
	}
	return p.complete(ctx, contents, config)
}

func (p *Provider) complete(
	ctx context.Context,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (domain.GenerationOutcome, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling Gemini API")

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return domain.EmptyOutcome(), p.toProviderError(err)
	}

	usage := toDomainUsage(resp)
	if usage != nil {
		logger.Debug("Gemini API call succeeded",
			observability.Int("prompt_tokens", usage.PromptTokens),
			observability.Int("completion_tokens", usage.CompletionTokens))
	}

	return domain.TextOutcome(responseText(resp), usage), nil
}

func (p *Provider) stream(
	ctx context.Context,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (domain.GenerationOutcome, error) {
	observability.FromContext(ctx).Debug("calling Gemini streaming API")

	next, stop := iter.Pull2(p.client.Models.GenerateContentStream(ctx, p.model, contents, config))

	first, err, ok := next()
	if !ok {
		stop()
		return domain.EmptyOutcome(), nil
	}
	if err != nil {
		stop()
		return domain.EmptyOutcome(), p.toProviderError(err)
	}

	chunks := make(chan domain.StreamChunk)
	go p.forward(ctx, first, next, stop, chunks)

	return domain.StreamOutcome(chunks), nil
}

func (p *Provider) forward(
	ctx context.Context,
	resp *genai.GenerateContentResponse,
	next func() (*genai.GenerateContentResponse, error, bool),
	stop func(),
	chunks chan<- domain.StreamChunk,
) {
	defer close(chunks)
	defer stop()

	send := func(chunk domain.StreamChunk) bool {
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		out := domain.StreamChunk{
			Delta: responseText(resp),
			Usage: toDomainUsage(resp),
		}
		if (out.Delta != "" || out.Usage != nil) && !send(out) {
			return
		}

		var (
			err error
			ok  bool
		)
		resp, err, ok = next()
		if !ok {
			return
		}
		if err != nil {
			send(domain.StreamChunk{Err: p.toProviderError(err)})
			return
		}
	}
}

// toSDKParams maps the transcript onto Gemini contents; the system prompt
// becomes the system instruction and assistant turns use the model role.
func (p *Provider) toSDKParams(req *domain.SynthesisRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	contents := make([]*genai.Content, 0, len(req.History)+1)

	for _, msg := range domain.BuildMessages(req) {
		switch msg.Role {
		case domain.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if req.Params.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Params.Temperature))
	}

	if req.Params.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.Params.MaxTokens)
	}

	return contents, config
}

func (p *Provider) toProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(p.name, apiErr.Code, fmt.Errorf("google API error: %w", err))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return domain.NewProviderError(p.name, apiErrPtr.Code, fmt.Errorf("google API error: %w", err))
	}
	return domain.NewProviderError(p.name, 0, fmt.Errorf("google API error: %w", err))
}

// responseText concatenates the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			content.WriteString(part.Text)
		}
	}
	return content.String()
}

func toDomainUsage(resp *genai.GenerateContentResponse) *domain.Usage {
	if resp == nil || resp.UsageMetadata == nil || resp.UsageMetadata.TotalTokenCount == 0 {
		return nil
	}
	return &domain.Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}
