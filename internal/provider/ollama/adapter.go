// Package ollama adapts a local Ollama model server to domain.Provider using
// its /api/chat endpoint. Streaming responses are newline-delimited JSON.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/observability"
)

const (
	defaultBaseURL = "http://localhost:11434"
	chatPath       = "/api/chat"
	maxErrorBody   = 4096
)

// Provider implements domain.Provider for a local Ollama server.
type Provider struct {
	baseURL string
	name    string
	model   string
	client  *http.Client
}

// Option customizes a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client. Deadlines come from the request
// context, so the client should carry no timeout of its own.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// NewProvider creates a new Ollama provider serving a single model.
func NewProvider(config Config, name, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("ollama model is required")
	}

	if name == "" {
		name = "ollama"
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	p := &Provider{
		baseURL: baseURL,
		name:    name,
		model:   model,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Generate posts the request to /api/chat.
func (p *Provider) Generate(ctx context.Context, req *domain.SynthesisRequest) (domain.GenerationOutcome, error) {
	if req == nil {
		return domain.EmptyOutcome(), errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Ollama API", observability.Bool("stream", req.Params.Stream))

	//nolint:bodyclose // Closed by complete, or by the stream goroutine
	resp, err := p.post(ctx, p.buildChatRequest(req))
	if err != nil {
		return domain.EmptyOutcome(), err
	}

	if !req.Params.Stream {
		return p.complete(ctx, resp)
	}

	chunks := make(chan domain.StreamChunk)
	go p.forward(ctx, resp, chunks)

	return domain.StreamOutcome(chunks), nil
}

func (p *Provider) post(ctx context.Context, chatReq chatRequest) (*http.Response, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: send request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, domain.NewProviderError(p.name, resp.StatusCode,
			fmt.Errorf("ollama: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	return resp, nil
}

func (p *Provider) complete(ctx context.Context, resp *http.Response) (domain.GenerationOutcome, error) {
	defer resp.Body.Close() //nolint:errcheck // Error on close is safe to ignore for read operations

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return domain.EmptyOutcome(), domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: decode response: %w", err))
	}

	if chatResp.Error != "" {
		return domain.EmptyOutcome(), domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: %s", chatResp.Error))
	}

	usage := chatResp.usage()
	observability.FromContext(ctx).Debug("Ollama API call succeeded",
		observability.Int("prompt_tokens", usage.PromptTokens),
		observability.Int("completion_tokens", usage.CompletionTokens))

	return domain.TextOutcome(chatResp.Message.Content, usage), nil
}

// forward decodes NDJSON lines until the done line, an error line, EOF or
// cancellation.
func (p *Provider) forward(ctx context.Context, resp *http.Response, chunks chan<- domain.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close() //nolint:errcheck // Error on close is safe to ignore for read operations

	send := func(chunk domain.StreamChunk) bool {
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chatResp chatResponse
		if err := json.Unmarshal(line, &chatResp); err != nil {
			send(domain.StreamChunk{Err: domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: unmarshal chunk: %w", err))})
			return
		}

		if chatResp.Error != "" {
			send(domain.StreamChunk{Err: domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: %s", chatResp.Error))})
			return
		}

		chunk := domain.StreamChunk{Delta: chatResp.Message.Content}
		if chatResp.Done {
			chunk.Usage = chatResp.usage()
		}

		if (chunk.Delta != "" || chunk.Usage != nil) && !send(chunk) {
			return
		}

		if chatResp.Done {
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	send(domain.StreamChunk{Err: domain.NewProviderError(p.name, 0, fmt.Errorf("ollama: read response: %w", err))})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason,omitempty"`
	PromptEvalCount int         `json:"prompt_eval_count,omitempty"`
	EvalCount       int         `json:"eval_count,omitempty"`
	Error           string      `json:"error,omitempty"`
}

func (r chatResponse) usage() *domain.Usage {
	return &domain.Usage{
		PromptTokens:     r.PromptEvalCount,
		CompletionTokens: r.EvalCount,
		TotalTokens:      r.PromptEvalCount + r.EvalCount,
	}
}

func (p *Provider) buildChatRequest(req *domain.SynthesisRequest) chatRequest {
	history := domain.BuildMessages(req)

	msgs := make([]chatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := chatRequest{
		Model:    p.model,
		Messages: msgs,
		Stream:   req.Params.Stream,
	}

	if req.Params.Temperature > 0 || req.Params.MaxTokens > 0 {
		chatReq.Options = &chatOptions{
			Temperature: req.Params.Temperature,
			NumPredict:  req.Params.MaxTokens,
		}
	}

	return chatReq
}
