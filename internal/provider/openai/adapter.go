// Package openai provides an adapter for the OpenAI API using the official SDK.
// It implements the domain.Provider interface and classifies chat completion
// responses into generation outcomes.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

// Provider implements the domain.Provider interface for OpenAI.
type Provider struct {
	client openai.Client
	name   string
	model  string
}

// NewProvider creates a new OpenAI provider serving a single model.
func NewProvider(config Config, name, model string, opts ...option.RequestOption) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	if model == "" {
		return nil, errors.New("OpenAI model is required")
	}

	if name == "" {
		name = "openai"
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(max(0, config.MaxRetries)),
	}

	if config.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		client: openai.NewClient(append(sdkOpts, opts...)...),
		name:   name,
		model:  model,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Generate sends the request as a chat completion. Streaming requests return
// a stream outcome once the first chunk has arrived.
func (p *Provider) Generate(ctx context.Context, req *domain.SynthesisRequest) (domain.GenerationOutcome, error) {
	if req == nil {
		return domain.EmptyOutcome(), errors.New("request cannot be nil")
	}

	params := p.toSDKParams(req)
	if req.Params.Stream {
		return p.stream(ctx, params)
	}
	return p.complete(ctx, params)
}

func (p *Provider) complete(ctx context.Context, params openai.ChatCompletionNewParams) (domain.GenerationOutcome, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API")

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.EmptyOutcome(), p.toProviderError(err)
	}

	usage := toDomainUsage(resp.Usage)
	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", usage.PromptTokens),
		observability.Int("completion_tokens", usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return domain.TextOutcome("", usage), nil
	}
	return domain.TextOutcome(resp.Choices[0].Message.Content, usage), nil
}

func (p *Provider) stream(ctx context.Context, params openai.ChatCompletionNewParams) (domain.GenerationOutcome, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI streaming API")

	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	// The first read surfaces connection and HTTP errors before the outcome
	// is handed over.
	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return domain.EmptyOutcome(), p.toProviderError(err)
		}
		return domain.EmptyOutcome(), nil
	}

	chunks := make(chan domain.StreamChunk)
	go p.forward(ctx, stream, chunks)

	return domain.StreamOutcome(chunks), nil
}

// forward relays SDK chunks, starting with the one already read.
func (p *Provider) forward(
	ctx context.Context,
	stream *ssestream.Stream[openai.ChatCompletionChunk],
	chunks chan<- domain.StreamChunk,
) {
	defer close(chunks)
	defer func() { _ = stream.Close() }()

	send := func(chunk domain.StreamChunk) bool {
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		current := stream.Current()

		var out domain.StreamChunk
		if len(current.Choices) > 0 {
			out.Delta = current.Choices[0].Delta.Content
		}
		if current.Usage.TotalTokens > 0 {
			out.Usage = toDomainUsage(current.Usage)
		}

		if (out.Delta != "" || out.Usage != nil) && !send(out) {
			return
		}

		if !stream.Next() {
			break
		}
	}

	if err := stream.Err(); err != nil {
		send(domain.StreamChunk{Err: p.toProviderError(err)})
	}
}

// toSDKParams converts the request to SDK ChatCompletionNewParams.
func (p *Provider) toSDKParams(req *domain.SynthesisRequest) openai.ChatCompletionNewParams {
	history := domain.BuildMessages(req)

	messages := make([]openai.ChatCompletionMessageParamUnion, len(history))
	for i, msg := range history {
		switch msg.Role {
		case domain.RoleUser:
			messages[i] = openai.UserMessage(msg.Content)
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		default:
			// Fallback to user message if role is unknown
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}

	if req.Params.Temperature > 0 {
		params.Temperature = openai.Float(req.Params.Temperature)
	}

	if req.Params.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.Params.MaxTokens))
	}

	return params
}

func (p *Provider) toProviderError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(p.name, apiErr.StatusCode, fmt.Errorf("OpenAI API call failed: %w", err))
	}
	return domain.NewProviderError(p.name, 0, fmt.Errorf("OpenAI API call failed: %w", err))
}

func toDomainUsage(usage openai.CompletionUsage) *domain.Usage {
	return &domain.Usage{
		PromptTokens:     int(usage.PromptTokens),
		CompletionTokens: int(usage.CompletionTokens),
		TotalTokens:      int(usage.TotalTokens),
	}
}
