// Package anthropic adapts the Anthropic Messages API to domain.Provider.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

const (
	eventMessageStart      = "message_start"
	eventMessageDelta      = "message_delta"
	eventContentBlockDelta = "content_block_delta"
	deltaText              = "text_delta"
	blockText              = "text"
)

// Provider implements domain.Provider for Claude models.
type Provider struct {
	client    anthropic.Client
	name      string
	model     string
	maxTokens int
}

// NewProvider creates a new Anthropic provider serving a single model.
func NewProvider(config Config, name, model string, opts ...option.RequestOption) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	if model == "" {
		return nil, errors.New("anthropic model is required")
	}

	if name == "" {
		name = "anthropic"
	}

	sdkOpts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(max(0, config.MaxRetries)),
	}

	if config.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(config.BaseURL))
	}

	maxTokens := config.DefaultMaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &Provider{
		client:    anthropic.NewClient(append(sdkOpts, opts...)...),
		name:      name,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Generate sends the request to the Messages API.
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

func (p *Provider) complete(ctx context.Context, params anthropic.MessageNewParams) (domain.GenerationOutcome, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling Anthropic API")

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return domain.EmptyOutcome(), p.toProviderError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == blockText {
			content.WriteString(block.Text)
		}
	}

	usage := &domain.Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}

	logger.Debug("Anthropic API call succeeded",
		observability.Int("prompt_tokens", usage.PromptTokens),
		observability.Int("completion_tokens", usage.CompletionTokens),
		observability.String("stop_reason", string(resp.StopReason)))

	return domain.TextOutcome(content.String(), usage), nil
}

func (p *Provider) stream(ctx context.Context, params anthropic.MessageNewParams) (domain.GenerationOutcome, error) {
	observability.FromContext(ctx).Debug("calling Anthropic streaming API")

	stream := p.client.Messages.NewStreaming(ctx, params)

	// message_start arrives first; reading it surfaces HTTP errors before the
	// outcome is handed over.
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

func (p *Provider) forward(
	ctx context.Context,
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion],
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

	var inputTokens int64
	for {
		event := stream.Current()

		switch event.Type {
		case eventMessageStart:
			inputTokens = event.Message.Usage.InputTokens
		case eventContentBlockDelta:
			if event.Delta.Type == deltaText && event.Delta.Text != "" {
				if !send(domain.StreamChunk{Delta: event.Delta.Text}) {
					return
				}
			}
		case eventMessageDelta:
			prompt := max(inputTokens, event.Usage.InputTokens)
			usage := &domain.Usage{
				PromptTokens:     int(prompt),
				CompletionTokens: int(event.Usage.OutputTokens),
				TotalTokens:      int(prompt + event.Usage.OutputTokens),
			}
			if !send(domain.StreamChunk{Usage: usage}) {
				return
			}
		}

		if !stream.Next() {
			break
		}
	}

	if err := stream.Err(); err != nil {
		send(domain.StreamChunk{Err: p.toProviderError(err)})
	}
}

// toSDKParams lifts the system prompt out of the transcript; the Messages
// API only accepts user and assistant turns.
func (p *Provider) toSDKParams(req *domain.SynthesisRequest) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)

	for _, msg := range domain.BuildMessages(req) {
		switch msg.Role {
		case domain.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case domain.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := p.maxTokens
	if req.Params.MaxTokens > 0 {
		maxTokens = req.Params.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		System:    system,
		Messages:  messages,
	}

	if req.Params.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Params.Temperature)
	}

	return params
}

func (p *Provider) toProviderError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(p.name, apiErr.StatusCode, fmt.Errorf("anthropic API error: %w", err))
	}
	return domain.NewProviderError(p.name, 0, fmt.Errorf("anthropic API error: %w", err))
}
