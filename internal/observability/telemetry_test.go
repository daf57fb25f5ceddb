package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/davidbz/synthd/internal/observability"
)

func TestTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	t.Run("should record spans started through StartSpan", func(t *testing.T) {
		ctx, span := observability.StartSpan(context.Background(), "synthesis.test")
		require.True(t, span.SpanContext().IsValid())
		span.End()

		logger := observability.FromContext(ctx)
		require.NotNil(t, logger)

		ended := recorder.Ended()
		require.NotEmpty(t, ended)
		require.Equal(t, "synthesis.test", ended[len(ended)-1].Name())
	})

	t.Run("should count attempts and exhausted runs", func(t *testing.T) {
		ctx := context.Background()
		observability.RecordAttempt(ctx, "a", "error")
		observability.RecordAttempt(ctx, "b", "success")
		observability.RecordSynthesis(ctx, "", 15*time.Millisecond, true)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		totals := map[string]int64{}
		var sawLatency bool
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					for _, dp := range data.DataPoints {
						totals[m.Name] += dp.Value
					}
				case metricdata.Histogram[float64]:
					sawLatency = sawLatency || m.Name == "synthd.synthesis.latency_ms"
				}
			}
		}

		require.Equal(t, int64(2), totals["synthd.provider.attempts"])
		require.Equal(t, int64(1), totals["synthd.synthesis.exhausted"])
		require.True(t, sawLatency)
	})
}

func TestInitTelemetry(t *testing.T) {
	t.Run("should be a no-op without an endpoint", func(t *testing.T) {
		shutdown, err := observability.InitTelemetry(context.Background(), observability.TelemetryConfig{})
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	})
}
