package domain

import "time"

// Message represents a conversation turn.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// GenerationParams controls a single generation call.
type GenerationParams struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	Stream      bool    `json:"stream,omitempty"`
}

// ContextChunk is a unit of retrieved text supplied as grounding material.
type ContextChunk struct {
	ID        string  `json:"id"`
	SourceRef string  `json:"source_ref"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"`
}

// SynthesisRequest is the input of a synthesis run. Treat it as immutable;
// derive modified copies with the With* helpers.
type SynthesisRequest struct {
	Query   string           `json:"query"`
	History []Message        `json:"history,omitempty"`
	Chunks  []ContextChunk   `json:"chunks"`
	Params  GenerationParams `json:"params"`
}

// WithStream returns a copy of the request with the stream flag replaced.
func (r *SynthesisRequest) WithStream(stream bool) *SynthesisRequest {
	clone := *r
	clone.Params.Stream = stream
	return &clone
}

// Chunk looks up a context chunk by id.
func (r *SynthesisRequest) Chunk(id string) (ContextChunk, bool) {
	for _, chunk := range r.Chunks {
		if chunk.ID == id {
			return chunk, true
		}
	}
	return ContextChunk{}, false
}

// ProviderDescriptor describes one configured generation backend.
type ProviderDescriptor struct {
	Name              string        `json:"name"`
	Kind              string        `json:"kind"`
	Model             string        `json:"model,omitempty"`
	Priority          int           `json:"priority"`
	SupportsStreaming bool          `json:"supports_streaming"`
	MaxContextTokens  int           `json:"max_context_tokens,omitempty"`
	Timeout           time.Duration `json:"timeout"`
}

// StreamChunk is a single fragment of an incremental response.
// Usage is typically only present on the final chunk.
type StreamChunk struct {
	Delta string `json:"delta"`
	Usage *Usage `json:"usage,omitempty"`
	Err   error  `json:"-"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// NormalizedText is the canonical reduction of a GenerationOutcome.
type NormalizedText struct {
	Text      string
	Truncated bool
	Fragments int
	Duration  time.Duration
	Usage     *Usage
	// Err is set when Truncated is true and explains why the stream stopped.
	Err error
}

// Citation links a span of the answer to the chunk that supports it.
type Citation struct {
	ChunkID    string  `json:"chunk_id"`
	SourceRef  string  `json:"source_ref,omitempty"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// AttemptOutcome classifies one provider call.
type AttemptOutcome string

const (
	AttemptSuccess   AttemptOutcome = "success"
	AttemptTimeout   AttemptOutcome = "timeout"
	AttemptError     AttemptOutcome = "error"
	AttemptEmpty     AttemptOutcome = "empty"
	AttemptCancelled AttemptOutcome = "cancelled"
)

// Attempt records one real provider call in the order it was made.
type Attempt struct {
	Provider string         `json:"provider"`
	Outcome  AttemptOutcome `json:"outcome"`
	Latency  time.Duration  `json:"latency"`
	Error    string         `json:"error,omitempty"`
}

// SkipReason explains why a provider was passed over without a call.
type SkipReason string

const (
	SkipCircuitOpen   SkipReason = "circuit_open"
	SkipContextWindow SkipReason = "context_window"
)

// SkippedProvider records a provider that was not called.
type SkippedProvider struct {
	Provider string     `json:"provider"`
	Reason   SkipReason `json:"reason"`
}

// SynthesisResult is the output of a synthesis run.
type SynthesisResult struct {
	RequestID  string            `json:"request_id"`
	Answer     string            `json:"answer"`
	Citations  []Citation        `json:"citations"`
	Confidence float64           `json:"confidence"`
	Provider   string            `json:"provider,omitempty"`
	Attempts   []Attempt         `json:"attempts"`
	Skipped    []SkippedProvider `json:"skipped,omitempty"`
	Truncated  bool              `json:"truncated"`
	Latency    time.Duration     `json:"latency"`
	Usage      *Usage            `json:"usage,omitempty"`
	// Err is ErrAllProvidersExhausted when no provider produced an answer.
	Err error `json:"-"`
}

// Exhausted reports whether every provider failed.
func (r *SynthesisResult) Exhausted() bool {
	return r.Provider == ""
}
