package domain_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/synthd/internal/circuit"
	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/mocks"
)

const leaveAnswer = "The annual leave policy requires manager approval before submission."

type fixture struct {
	router    *mocks.MockRouter
	breaker   *circuit.Breaker
	events    *mocks.MockEventPublisher
	providers map[string]*mocks.MockProvider
	chain     []domain.Candidate
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	f := &fixture{
		router:    mocks.NewMockRouter(t),
		breaker:   circuit.NewBreaker(circuit.DefaultConfig()),
		events:    mocks.NewMockEventPublisher(t),
		providers: make(map[string]*mocks.MockProvider, len(names)),
	}

	for i, name := range names {
		provider := mocks.NewMockProvider(t)
		f.providers[name] = provider
		f.chain = append(f.chain, domain.Candidate{
			Descriptor: domain.ProviderDescriptor{
				Name:              name,
				Kind:              "mock",
				Model:             "model-" + name,
				Priority:          i + 1,
				SupportsStreaming: true,
				Timeout:           time.Second,
			},
			Provider: provider,
		})
	}

	f.events.EXPECT().Publish(mock.Anything, mock.Anything, mock.Anything).Maybe()

	return f
}

func (f *fixture) plan(skipped ...domain.SkippedProvider) {
	f.router.EXPECT().Plan(mock.Anything, mock.Anything).Return(f.chain, skipped, nil)
}

func (f *fixture) synthesizer(opts ...func(*domain.SynthesisConfig)) *domain.Synthesizer {
	config := domain.SynthesisConfig{RequestTimeout: 5 * time.Second, FallbackOnEmpty: true}
	for _, opt := range opts {
		opt(&config)
	}

	pricing := domain.NewInMemoryPricingRegistry()
	_ = pricing.RegisterPricing(context.Background(), "model-c", domain.PricingConfig{
		InputCostPer1K:  1,
		OutputCostPer1K: 2,
	})

	return domain.NewSynthesizer(
		f.router,
		f.breaker,
		defaultExtractor(),
		domain.NewWeightedConfidenceScorer(domain.DefaultConfidenceWeights()),
		domain.NewStandardCostCalculator(pricing),
		f.events,
		config,
	)
}

func leaveRequest() *domain.SynthesisRequest {
	return &domain.SynthesisRequest{
		Query:  "Do I need approval for annual leave?",
		Chunks: leaveChunks(),
	}
}

func failWith(status int) (domain.GenerationOutcome, error) {
	return domain.GenerationOutcome{}, domain.NewProviderError("mock", status, errors.New(http.StatusText(status)))
}

func TestSynthesizer_Synthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("should answer from the first provider", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.NoError(t, result.Err)
		require.False(t, result.Exhausted())
		require.Equal(t, "a", result.Provider)
		require.Equal(t, leaveAnswer, result.Answer)
		require.Len(t, result.Citations, 1)
		require.Equal(t, "chunk1", result.Citations[0].ChunkID)
		require.InDelta(t, 0.8, result.Confidence, 1e-9)
		require.Len(t, result.Attempts, 1)
		require.Equal(t, domain.AttemptSuccess, result.Attempts[0].Outcome)
		require.NotEmpty(t, result.RequestID)
	})

	t.Run("should fall back until a provider succeeds", func(t *testing.T) {
		f := newFixture(t, "a", "b", "c")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).Return(failWith(http.StatusInternalServerError)).Once()
		f.providers["b"].EXPECT().Generate(mock.Anything, mock.Anything).Return(failWith(http.StatusTooManyRequests)).Once()
		f.providers["c"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, &domain.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, "c", result.Provider)
		require.Len(t, result.Attempts, 3)
		require.Equal(t, "a", result.Attempts[0].Provider)
		require.Equal(t, domain.AttemptError, result.Attempts[0].Outcome)
		require.Equal(t, "b", result.Attempts[1].Provider)
		require.Equal(t, domain.AttemptError, result.Attempts[1].Outcome)
		require.Equal(t, "c", result.Attempts[2].Provider)
		require.Equal(t, domain.AttemptSuccess, result.Attempts[2].Outcome)
		require.NotNil(t, result.Usage)
		require.InDelta(t, 2.0, result.Usage.Cost, 1e-9)

		require.Equal(t, 1, f.breaker.Snapshot("a").ConsecutiveFailures)
		require.Equal(t, 0, f.breaker.Snapshot("c").ConsecutiveFailures)
	})

	t.Run("should report exhaustion when every provider fails", func(t *testing.T) {
		f := newFixture(t, "a", "b", "c")
		f.plan()
		for _, name := range []string{"a", "b", "c"} {
			f.providers[name].EXPECT().Generate(mock.Anything, mock.Anything).Return(failWith(http.StatusBadGateway)).Once()
		}
		f.events = mocks.NewMockEventPublisher(t)
		f.events.EXPECT().Publish(mock.Anything, domain.EventSynthesisExhausted, mock.Anything).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.ErrorIs(t, result.Err, domain.ErrAllProvidersExhausted)
		require.True(t, result.Exhausted())
		require.Empty(t, result.Provider)
		require.Empty(t, result.Answer)
		require.NotNil(t, result.Citations)
		require.Empty(t, result.Citations)
		require.Zero(t, result.Confidence)
		require.Len(t, result.Attempts, 3)
		for _, attempt := range result.Attempts {
			require.Equal(t, domain.AttemptError, attempt.Outcome)
			require.NotEmpty(t, attempt.Error)
		}
	})

	t.Run("should skip providers with an open circuit", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		for i := 0; i < 3; i++ {
			f.breaker.RecordFailure("a")
		}
		f.providers["b"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, "b", result.Provider)
		require.Len(t, result.Attempts, 1)
		require.Equal(t, []domain.SkippedProvider{{Provider: "a", Reason: domain.SkipCircuitOpen}}, result.Skipped)
		f.providers["a"].AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("should keep skips reported by the planner", func(t *testing.T) {
		f := newFixture(t, "b")
		f.plan(domain.SkippedProvider{Provider: "a", Reason: domain.SkipContextWindow})
		f.providers["b"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, domain.SkipContextWindow, result.Skipped[0].Reason)
	})

	t.Run("should open the circuit after repeated failures across requests", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.router.EXPECT().Plan(mock.Anything, mock.Anything).Return(f.chain, nil, nil).Times(4)
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).Return(failWith(http.StatusServiceUnavailable)).Times(3)
		f.providers["b"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Times(4)

		synthesizer := f.synthesizer()
		for i := 0; i < 3; i++ {
			result, err := synthesizer.Synthesize(ctx, leaveRequest())
			require.NoError(t, err)
			require.Len(t, result.Attempts, 2)
		}

		result, err := synthesizer.Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Len(t, result.Attempts, 1)
		require.Equal(t, circuit.StateOpen, f.breaker.State("a"))
	})

	t.Run("should classify slow providers as timeouts", func(t *testing.T) {
		f := newFixture(t, "slow", "fast")
		f.chain[0].Descriptor.Timeout = 20 * time.Millisecond
		f.plan()
		f.providers["slow"].EXPECT().Generate(mock.Anything, mock.Anything).
			RunAndReturn(func(ctx context.Context, _ *domain.SynthesisRequest) (domain.GenerationOutcome, error) {
				<-ctx.Done()
				return domain.GenerationOutcome{}, ctx.Err()
			}).Once()
		f.providers["fast"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, "fast", result.Provider)
		require.Equal(t, domain.AttemptTimeout, result.Attempts[0].Outcome)
		require.Contains(t, result.Attempts[0].Error, domain.ErrProviderTimeout.Error())
	})

	t.Run("should fall back on empty outcomes", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).Return(domain.EmptyOutcome(), nil).Once()
		f.providers["b"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, "b", result.Provider)
		require.Equal(t, domain.AttemptEmpty, result.Attempts[0].Outcome)
		require.Equal(t, circuit.StateClosed, f.breaker.State("a"))
		require.Zero(t, f.breaker.Snapshot("a").ConsecutiveFailures)
	})

	t.Run("should accept an empty answer when fallback on empty is off", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).Return(domain.EmptyOutcome(), nil).Once()

		result, err := f.synthesizer(func(c *domain.SynthesisConfig) { c.FallbackOnEmpty = false }).
			Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, "a", result.Provider)
		require.Empty(t, result.Answer)
		require.Empty(t, result.Citations)
	})

	t.Run("should return partial streamed text as truncated", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.MatchedBy(func(req *domain.SynthesisRequest) bool {
			return req.Params.Stream
		})).Return(domain.StreamOutcome(streamOf(
			domain.StreamChunk{Delta: "The annual leave policy "},
			domain.StreamChunk{Delta: "requires manager approval"},
			domain.StreamChunk{Err: errors.New("connection reset")},
		)), nil).Once()

		req := leaveRequest()
		req.Params.Stream = true

		result, err := f.synthesizer().Synthesize(ctx, req)

		require.NoError(t, err)
		require.Equal(t, "a", result.Provider)
		require.True(t, result.Truncated)
		require.Equal(t, "The annual leave policy requires manager approval", result.Answer)
		require.Len(t, result.Citations, 1)
		// 0.5*0.9 + 0.3*(1/2) + 0.2*0
		require.InDelta(t, 0.6, result.Confidence, 1e-9)
		require.Contains(t, result.Attempts[0].Error, domain.ErrStreamInterrupted.Error())
		require.Equal(t, 1, f.breaker.Snapshot("a").ConsecutiveFailures)
	})

	t.Run("should fall back when a stream fails before any text", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.StreamOutcome(streamOf(domain.StreamChunk{Err: errors.New("reset")})), nil).Once()
		f.providers["b"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Equal(t, "b", result.Provider)
		require.Equal(t, domain.AttemptError, result.Attempts[0].Outcome)
	})

	t.Run("should not request streams from providers without streaming", func(t *testing.T) {
		f := newFixture(t, "a")
		f.chain[0].Descriptor.SupportsStreaming = false
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.MatchedBy(func(req *domain.SynthesisRequest) bool {
			return !req.Params.Stream
		})).Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		req := leaveRequest()
		req.Params.Stream = true

		_, err := f.synthesizer().Synthesize(ctx, req)

		require.NoError(t, err)
		require.True(t, req.Params.Stream)
	})

	t.Run("should drop citations of unknown chunks", func(t *testing.T) {
		f := newFixture(t, "a")
		f.plan()
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).
			Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()

		synthesizer := domain.NewSynthesizer(
			f.router,
			f.breaker,
			phantomExtractor{},
			domain.NewWeightedConfidenceScorer(domain.DefaultConfidenceWeights()),
			nil,
			f.events,
			domain.SynthesisConfig{FallbackOnEmpty: true},
		)

		result, err := synthesizer.Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.Len(t, result.Citations, 1)
		require.Equal(t, "chunk1", result.Citations[0].ChunkID)
	})

	t.Run("should stop walking the chain once the request is cancelled", func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.plan()
		reqCtx, cancel := context.WithCancel(ctx)
		f.providers["a"].EXPECT().Generate(mock.Anything, mock.Anything).
			RunAndReturn(func(context.Context, *domain.SynthesisRequest) (domain.GenerationOutcome, error) {
				cancel()
				return domain.GenerationOutcome{}, context.Canceled
			}).Once()

		result, err := f.synthesizer().Synthesize(reqCtx, leaveRequest())

		require.NoError(t, err)
		require.True(t, result.Exhausted())
		require.Len(t, result.Attempts, 1)
		require.Equal(t, domain.AttemptCancelled, result.Attempts[0].Outcome)
		require.Zero(t, f.breaker.Snapshot("a").ConsecutiveFailures)
	})

	t.Run("should publish a completion event", func(t *testing.T) {
		f := newFixture(t)
		f.events = mocks.NewMockEventPublisher(t)
		provider := mocks.NewMockProvider(t)
		f.chain = []domain.Candidate{{
			Descriptor: domain.ProviderDescriptor{Name: "a", Timeout: time.Second},
			Provider:   provider,
		}}
		f.plan()
		provider.EXPECT().Generate(mock.Anything, mock.Anything).Return(domain.TextOutcome(leaveAnswer, nil), nil).Once()
		f.events.EXPECT().Publish(mock.Anything, domain.EventSynthesisCompleted, mock.MatchedBy(func(data map[string]interface{}) bool {
			return data["provider"] == "a" && data["attempts"] == 1
		})).Once()

		_, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
	})

	t.Run("should reject invalid requests before calling providers", func(t *testing.T) {
		f := newFixture(t, "a")

		_, err := f.synthesizer().Synthesize(ctx, &domain.SynthesisRequest{Query: ""})
		require.ErrorContains(t, err, "invalid request")

		_, err = f.synthesizer().Synthesize(ctx, nil)
		require.Error(t, err)
	})

	t.Run("should surface planning errors", func(t *testing.T) {
		f := newFixture(t)
		f.router.EXPECT().Plan(mock.Anything, mock.Anything).Return(nil, nil, errors.New("registry unavailable"))

		_, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.ErrorContains(t, err, "registry unavailable")
	})

	t.Run("should report exhaustion for an empty plan", func(t *testing.T) {
		f := newFixture(t)
		f.plan()

		result, err := f.synthesizer().Synthesize(ctx, leaveRequest())

		require.NoError(t, err)
		require.ErrorIs(t, result.Err, domain.ErrAllProvidersExhausted)
		require.Empty(t, result.Attempts)
		require.Empty(t, result.Answer)
		require.Zero(t, result.Confidence)
	})
}

type phantomExtractor struct{}

func (phantomExtractor) Extract(_ context.Context, _ string, _ []domain.ContextChunk) []domain.Citation {
	return []domain.Citation{
		{ChunkID: "chunk1", Start: 4, End: 49, Confidence: 1},
		{ChunkID: "does-not-exist", Start: 0, End: 3, Confidence: 1},
	}
}
