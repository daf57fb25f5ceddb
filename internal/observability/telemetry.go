package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/davidbz/synthd"

type instruments struct {
	attempts  metric.Int64Counter
	exhausted metric.Int64Counter
	latency   metric.Float64Histogram
}

//nolint:gochecknoglobals // Instruments are created once against the global meter provider
var (
	instrumentsOnce  sync.Once
	meterInstruments instruments
)

// StartSpan starts a span on the global tracer provider. Without an SDK
// installed the span is a no-op but still propagates through ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func getInstruments() *instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)

		// Instrument creation only fails on invalid names; the no-op
		// fallbacks keep recording calls safe either way.
		attempts, err := meter.Int64Counter("synthd.provider.attempts",
			metric.WithDescription("Provider attempts by outcome"))
		if err != nil {
			getBaseLogger().Warn("failed to create attempts counter", Error(err))
		}

		exhausted, err := meter.Int64Counter("synthd.synthesis.exhausted",
			metric.WithDescription("Synthesis runs where every provider failed"))
		if err != nil {
			getBaseLogger().Warn("failed to create exhausted counter", Error(err))
		}

		latency, err := meter.Float64Histogram("synthd.synthesis.latency_ms",
			metric.WithDescription("End-to-end synthesis latency"),
			metric.WithUnit("ms"))
		if err != nil {
			getBaseLogger().Warn("failed to create latency histogram", Error(err))
		}

		meterInstruments = instruments{
			attempts:  attempts,
			exhausted: exhausted,
			latency:   latency,
		}
	})
	return &meterInstruments
}

// RecordAttempt counts one provider attempt.
func RecordAttempt(ctx context.Context, provider, outcome string) {
	inst := getInstruments()
	if inst.attempts == nil {
		return
	}
	inst.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordSynthesis records the latency of a finished synthesis run and counts
// exhausted runs.
func RecordSynthesis(ctx context.Context, provider string, latency time.Duration, exhausted bool) {
	inst := getInstruments()

	if inst.latency != nil {
		inst.latency.Record(ctx, float64(latency.Microseconds())/1000, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.Bool("exhausted", exhausted),
		))
	}

	if exhausted && inst.exhausted != nil {
		inst.exhausted.Add(ctx, 1)
	}
}
