package domain

// OutcomeKind tags the variant held by a GenerationOutcome.
type OutcomeKind int

const (
	// OutcomeEmpty is a valid response with no content.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeText is a complete, single-string response.
	OutcomeText
	// OutcomeStream is an incremental response delivered as fragments.
	OutcomeStream
)

// String returns the variant name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeText:
		return "text"
	case OutcomeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// GenerationOutcome is what an adapter hands back for one call. Adapters
// classify their backend response into exactly one variant; nothing
// downstream inspects types at runtime.
type GenerationOutcome struct {
	kind   OutcomeKind
	text   string
	usage  *Usage
	stream <-chan StreamChunk
}

// EmptyOutcome builds the Empty variant.
func EmptyOutcome() GenerationOutcome {
	return GenerationOutcome{kind: OutcomeEmpty}
}

// TextOutcome builds the CompleteText variant. An empty text collapses to Empty.
func TextOutcome(text string, usage *Usage) GenerationOutcome {
	if text == "" {
		return GenerationOutcome{kind: OutcomeEmpty, usage: usage}
	}
	return GenerationOutcome{kind: OutcomeText, text: text, usage: usage}
}

// StreamOutcome builds the FragmentStream variant. The producer owns the
// channel and must close it; the consumer reads it exactly once.
func StreamOutcome(stream <-chan StreamChunk) GenerationOutcome {
	if stream == nil {
		return EmptyOutcome()
	}
	return GenerationOutcome{kind: OutcomeStream, stream: stream}
}

// Kind returns the variant tag.
func (o GenerationOutcome) Kind() OutcomeKind { return o.kind }

// Text returns the payload of a CompleteText outcome.
func (o GenerationOutcome) Text() string { return o.text }

// Usage returns provider-reported usage for non-stream outcomes.
func (o GenerationOutcome) Usage() *Usage { return o.usage }

// Stream returns the fragment channel of a FragmentStream outcome.
func (o GenerationOutcome) Stream() <-chan StreamChunk { return o.stream }
