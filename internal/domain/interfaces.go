package domain

import "context"

// Provider represents any text-generation backend.
type Provider interface {
	// Generate runs one generation call and classifies the backend response
	// into a GenerationOutcome. A returned error means the provider is unusable
	// for this attempt.
	Generate(ctx context.Context, req *SynthesisRequest) (GenerationOutcome, error)

	// Name returns the provider identifier.
	Name() string
}

// Candidate pairs a provider with its descriptor in a fallback chain.
type Candidate struct {
	Descriptor ProviderDescriptor
	Provider   Provider
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider under its descriptor.
	Register(ctx context.Context, descriptor ProviderDescriptor, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Candidate, error)

	// List returns all registered providers in fallback order.
	List(ctx context.Context) ([]Candidate, error)
}

// Router builds the fallback chain for a request.
type Router interface {
	// Plan returns the providers to try, in order, and the ones passed over.
	Plan(ctx context.Context, req *SynthesisRequest) ([]Candidate, []SkippedProvider, error)
}

// CircuitBreaker tracks provider availability across requests.
type CircuitBreaker interface {
	// Allow reports whether the provider may be called now. A true result in
	// half-open state reserves the single trial call.
	Allow(provider string) bool

	// RecordSuccess records a successful real attempt.
	RecordSuccess(provider string)

	// RecordFailure records a failed real attempt.
	RecordFailure(provider string)

	// Release returns a reserved trial without a verdict.
	Release(provider string)
}

// CitationExtractor aligns answer spans with context chunks.
type CitationExtractor interface {
	// Extract returns citations for the answer, ordered by evidentiary weight.
	Extract(ctx context.Context, answer string, chunks []ContextChunk) []Citation
}

// ConfidenceScorer combines retrieval, citation and completeness signals.
type ConfidenceScorer interface {
	// Score returns a confidence in [0, 1].
	Score(req *SynthesisRequest, citations []Citation, truncated bool) float64
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
