package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/davidbz/synthd/internal/observability"
)

// Event types published by the synthesizer.
const (
	EventSynthesisCompleted = "synthesis.completed"
	EventSynthesisExhausted = "synthesis.exhausted"
)

// SynthesisConfig contains orchestration settings.
type SynthesisConfig struct {
	RequestTimeout  time.Duration `env:"SYNTHESIS_REQUEST_TIMEOUT"   envDefault:"90s"`
	FallbackOnEmpty bool          `env:"SYNTHESIS_FALLBACK_ON_EMPTY" envDefault:"true"`
}

// SynthesizerOption customizes a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithClock replaces the wall clock used for latency measurement.
func WithClock(clock clockz.Clock) SynthesizerOption {
	return func(s *Synthesizer) {
		s.clock = clock
	}
}

// Synthesizer walks the fallback chain for a request and turns the first
// usable generation into a cited, scored answer. It is safe for concurrent use.
type Synthesizer struct {
	router         Router
	breaker        CircuitBreaker
	normalizer     *Normalizer
	extractor      CitationExtractor
	scorer         ConfidenceScorer
	costCalculator CostCalculator
	events         EventPublisher
	config         SynthesisConfig
	clock          clockz.Clock
}

// NewSynthesizer creates a new synthesizer (DI constructor).
func NewSynthesizer(
	router Router,
	breaker CircuitBreaker,
	extractor CitationExtractor,
	scorer ConfidenceScorer,
	costCalculator CostCalculator,
	events EventPublisher,
	config SynthesisConfig,
	opts ...SynthesizerOption,
) *Synthesizer {
	s := &Synthesizer{
		router:         router,
		breaker:        breaker,
		extractor:      extractor,
		scorer:         scorer,
		costCalculator: costCalculator,
		events:         events,
		config:         config,
		clock:          clockz.RealClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.normalizer = NewNormalizer(s.clock)
	return s
}

// Synthesize produces an answer for the request. Provider failures never
// surface as errors: when every provider fails the result carries
// ErrAllProvidersExhausted in Err, zero confidence and the full attempt log.
// A returned error means the request itself was unusable.
func (s *Synthesizer) Synthesize(ctx context.Context, req *SynthesisRequest) (*SynthesisResult, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	ctx, requestID := observability.EnsureRequestID(ctx)

	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	ctx, span := observability.StartSpan(ctx, "synthesis.synthesize",
		attribute.String("request_id", requestID),
		attribute.Int("chunks", len(req.Chunks)),
		attribute.Bool("stream", req.Params.Stream))
	defer span.End()

	start := s.clock.Now()
	logger := observability.FromContext(ctx)
	logger.Info("synthesis started",
		observability.Int("chunks", len(req.Chunks)),
		observability.Int("history", len(req.History)),
		observability.Bool("stream", req.Params.Stream))

	candidates, skipped, err := s.router.Plan(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fallback planning failed: %w", err)
	}

	result := &SynthesisResult{
		RequestID: requestID,
		Citations: []Citation{},
		Attempts:  make([]Attempt, 0, len(candidates)),
		Skipped:   skipped,
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			logger.Warn("request deadline reached, stopping fallback chain",
				observability.Error(ctx.Err()))
			break
		}

		name := candidate.Descriptor.Name
		if !s.breaker.Allow(name) {
			logger.Info("provider skipped",
				observability.String("provider", name),
				observability.Error(ErrProviderUnavailable))
			result.Skipped = append(result.Skipped, SkippedProvider{Provider: name, Reason: SkipCircuitOpen})
			continue
		}

		text, attempt := s.attempt(ctx, req, candidate, len(result.Attempts)+1)
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Outcome == AttemptSuccess {
			s.complete(ctx, req, result, candidate.Descriptor, text, start)
			span.SetAttributes(attribute.String("provider", name))
			return result, nil
		}
	}

	s.exhaust(ctx, result, start)
	span.SetStatus(codes.Error, ErrAllProvidersExhausted.Error())
	return result, nil
}

// attempt performs one real provider call under the provider's deadline and
// updates the circuit breaker with its verdict.
func (s *Synthesizer) attempt(ctx context.Context, req *SynthesisRequest, candidate Candidate, number int) (NormalizedText, Attempt) {
	descriptor := candidate.Descriptor
	ctx = observability.WithAttempt(ctx, descriptor.Name, descriptor.Model, number)

	ctx, span := observability.StartSpan(ctx, "synthesis.attempt",
		attribute.String("provider", descriptor.Name),
		attribute.String("kind", descriptor.Kind),
		attribute.Int("attempt", number))
	defer span.End()

	logger := observability.FromContext(ctx)

	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if descriptor.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, descriptor.Timeout)
	}
	defer cancel()

	streaming := req.Params.Stream && descriptor.SupportsStreaming
	logger.Debug("calling provider",
		observability.Duration("timeout", descriptor.Timeout),
		observability.Bool("stream", streaming))

	start := s.clock.Now()
	var text NormalizedText
	outcome, err := candidate.Provider.Generate(attemptCtx, req.WithStream(streaming))
	if err == nil {
		text = s.normalizer.Normalize(attemptCtx, outcome)
	}

	attempt := Attempt{
		Provider: descriptor.Name,
		Latency:  s.clock.Now().Sub(start),
	}

	switch {
	case err != nil:
		attempt.Outcome, err = classifyFailure(ctx, attemptCtx, err)
	case text.Truncated && text.Text == "":
		attempt.Outcome, err = classifyFailure(ctx, attemptCtx, text.Err)
	case text.Text == "" && s.config.FallbackOnEmpty:
		attempt.Outcome = AttemptEmpty
	default:
		attempt.Outcome = AttemptSuccess
		if text.Truncated {
			err = text.Err
		}
	}
	if err != nil {
		attempt.Error = err.Error()
	}

	s.recordVerdict(ctx, descriptor.Name, attempt.Outcome, text.Truncated)
	observability.RecordAttempt(ctx, descriptor.Name, string(attempt.Outcome))

	switch attempt.Outcome {
	case AttemptSuccess:
		logger.Info("provider attempt succeeded",
			observability.Duration("latency", attempt.Latency),
			observability.Int("fragments", text.Fragments),
			observability.Bool("truncated", text.Truncated))
	case AttemptEmpty:
		logger.Warn("provider returned empty response",
			observability.Duration("latency", attempt.Latency))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, attempt.Error)
		logger.Warn("provider attempt failed",
			observability.String("outcome", string(attempt.Outcome)),
			observability.Duration("latency", attempt.Latency),
			observability.Error(err))
	}

	return text, attempt
}

// recordVerdict feeds the attempt outcome to the circuit breaker. Aborts
// caused by the caller release the attempt without blaming the provider.
func (s *Synthesizer) recordVerdict(ctx context.Context, provider string, outcome AttemptOutcome, truncated bool) {
	callerAborted := callerCancelled(ctx)

	switch {
	case outcome == AttemptCancelled:
		s.breaker.Release(provider)
	case outcome == AttemptSuccess && truncated && callerAborted:
		s.breaker.Release(provider)
	case outcome == AttemptSuccess && truncated:
		s.breaker.RecordFailure(provider)
	case outcome == AttemptSuccess, outcome == AttemptEmpty:
		s.breaker.RecordSuccess(provider)
	default:
		s.breaker.RecordFailure(provider)
	}
}

// classifyFailure maps a failed call onto the attempt taxonomy.
func classifyFailure(parent, attemptCtx context.Context, err error) (AttemptOutcome, error) {
	if err == nil {
		err = ErrProviderError
	}

	switch {
	case callerCancelled(parent):
		return AttemptCancelled, fmt.Errorf("request aborted: %w", err)
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || IsTimeout(err):
		return AttemptTimeout, fmt.Errorf("%w: %w", ErrProviderTimeout, err)
	case errors.Is(err, ErrProviderError):
		return AttemptError, err
	default:
		return AttemptError, fmt.Errorf("%w: %w", ErrProviderError, err)
	}
}

// callerCancelled reports an explicit cancellation. An expired request
// deadline also expires the attempt deadline and counts as a timeout.
func callerCancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

// complete fills the result from a successful generation.
func (s *Synthesizer) complete(
	ctx context.Context,
	req *SynthesisRequest,
	result *SynthesisResult,
	descriptor ProviderDescriptor,
	text NormalizedText,
	start time.Time,
) {
	citations := knownChunksOnly(req, s.extractor.Extract(ctx, text.Text, req.Chunks))

	result.Answer = text.Text
	result.Citations = citations
	result.Confidence = clamp(s.scorer.Score(req, citations, text.Truncated), 0, 1)
	result.Provider = descriptor.Name
	result.Truncated = text.Truncated
	result.Usage = s.priceUsage(ctx, descriptor, text.Usage)
	result.Latency = s.clock.Now().Sub(start)

	observability.RecordSynthesis(ctx, descriptor.Name, result.Latency, false)

	observability.FromContext(ctx).Info("synthesis completed",
		observability.String("provider", result.Provider),
		observability.Int("attempts", len(result.Attempts)),
		observability.Int("citations", len(result.Citations)),
		observability.Float64("confidence", result.Confidence),
		observability.Bool("truncated", result.Truncated),
		observability.Duration("latency", result.Latency))

	s.publish(ctx, EventSynthesisCompleted, map[string]interface{}{
		"request_id": result.RequestID,
		"provider":   result.Provider,
		"attempts":   len(result.Attempts),
		"citations":  len(result.Citations),
		"confidence": result.Confidence,
		"truncated":  result.Truncated,
		"latency_ms": result.Latency.Milliseconds(),
	})
}

// exhaust turns the result into the reported all-providers-failed form.
func (s *Synthesizer) exhaust(ctx context.Context, result *SynthesisResult, start time.Time) {
	result.Answer = ""
	result.Citations = []Citation{}
	result.Confidence = 0
	result.Provider = ""
	result.Err = ErrAllProvidersExhausted
	result.Latency = s.clock.Now().Sub(start)

	observability.RecordSynthesis(ctx, "", result.Latency, true)

	observability.FromContext(ctx).Error("synthesis failed",
		observability.Error(ErrAllProvidersExhausted),
		observability.Int("attempts", len(result.Attempts)),
		observability.Int("skipped", len(result.Skipped)),
		observability.Duration("latency", result.Latency))

	outcomes := make([]string, 0, len(result.Attempts))
	for _, attempt := range result.Attempts {
		outcomes = append(outcomes, attempt.Provider+"="+string(attempt.Outcome))
	}

	s.publish(ctx, EventSynthesisExhausted, map[string]interface{}{
		"request_id": result.RequestID,
		"attempts":   outcomes,
		"skipped":    len(result.Skipped),
		"latency_ms": result.Latency.Milliseconds(),
	})
}

func (s *Synthesizer) priceUsage(ctx context.Context, descriptor ProviderDescriptor, usage *Usage) *Usage {
	if usage == nil {
		return nil
	}

	priced := *usage
	if s.costCalculator == nil {
		return &priced
	}

	model := descriptor.Model
	if model == "" {
		model = descriptor.Name
	}
	cost, _ := s.costCalculator.Calculate(ctx, model, priced)
	priced.Cost = cost
	return &priced
}

func (s *Synthesizer) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventType, data)
}

// knownChunksOnly drops citations that do not reference a request chunk.
func knownChunksOnly(req *SynthesisRequest, citations []Citation) []Citation {
	kept := make([]Citation, 0, len(citations))
	for _, citation := range citations {
		if _, ok := req.Chunk(citation.ChunkID); ok {
			kept = append(kept, citation)
		}
	}
	return kept
}
