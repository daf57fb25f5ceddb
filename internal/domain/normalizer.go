package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/clockz"

	"github.com/davidbz/synthd/internal/observability"
)

// Normalizer reduces any GenerationOutcome to a NormalizedText.
type Normalizer struct {
	clock clockz.Clock
}

// NewNormalizer creates a normalizer measuring durations with the given clock.
func NewNormalizer(clock clockz.Clock) *Normalizer {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Normalizer{clock: clock}
}

// Normalize consumes the outcome. Stream outcomes are read exactly once; an
// error chunk or ctx cancellation stops consumption and marks the text as
// truncated while keeping every fragment received so far.
func (n *Normalizer) Normalize(ctx context.Context, outcome GenerationOutcome) NormalizedText {
	start := n.clock.Now()

	switch outcome.Kind() {
	case OutcomeEmpty:
		return NormalizedText{Usage: outcome.Usage()}
	case OutcomeText:
		return NormalizedText{
			Text:      outcome.Text(),
			Fragments: 1,
			Usage:     outcome.Usage(),
		}
	case OutcomeStream:
		result := n.drain(ctx, outcome.Stream())
		result.Duration = n.clock.Now().Sub(start)
		return result
	default:
		return NormalizedText{
			Truncated: true,
			Err:       fmt.Errorf("%w: unknown outcome kind %d", ErrStreamInterrupted, outcome.Kind()),
		}
	}
}

func (n *Normalizer) drain(ctx context.Context, stream <-chan StreamChunk) NormalizedText {
	logger := observability.FromContext(ctx)

	var (
		builder   strings.Builder
		fragments int
		usage     *Usage
	)

	partial := func(cause error) NormalizedText {
		logger.Warn("stream truncated",
			observability.Int("fragments", fragments),
			observability.Int("chars", builder.Len()),
			observability.Error(cause))
		return NormalizedText{
			Text:      builder.String(),
			Truncated: true,
			Fragments: fragments,
			Usage:     usage,
			Err:       fmt.Errorf("%w: %w", ErrStreamInterrupted, cause),
		}
	}

	for {
		// Checked first so an already-cancelled ctx never races a ready chunk.
		if err := ctx.Err(); err != nil {
			return partial(err)
		}

		select {
		case <-ctx.Done():
			return partial(ctx.Err())
		case chunk, ok := <-stream:
			if !ok {
				return NormalizedText{
					Text:      builder.String(),
					Fragments: fragments,
					Usage:     usage,
				}
			}
			if chunk.Err != nil {
				return partial(chunk.Err)
			}
			if chunk.Usage != nil {
				usage = chunk.Usage
			}
			if chunk.Delta != "" {
				builder.WriteString(chunk.Delta)
				fragments++
			}
		}
	}
}
