package domain

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/davidbz/synthd/internal/observability"
)

// CitationConfig holds the overlap thresholds for citation extraction.
type CitationConfig struct {
	MinOverlapChars  int `env:"CITATION_MIN_OVERLAP_CHARS"  envDefault:"20"`
	MinOverlapTokens int `env:"CITATION_MIN_OVERLAP_TOKENS" envDefault:"5"`
}

// OverlapCitationExtractor cites a chunk when a long enough run of its words
// reappears, contiguously, in the answer. Words are compared case-insensitively
// with surrounding punctuation stripped.
type OverlapCitationExtractor struct {
	config CitationConfig
}

// NewOverlapCitationExtractor creates a citation extractor.
func NewOverlapCitationExtractor(config CitationConfig) *OverlapCitationExtractor {
	return &OverlapCitationExtractor{config: config}
}

type token struct {
	norm  string
	start int
	end   int
}

type scoredCitation struct {
	citation  Citation
	relevance float64
	overlap   int
	order     int
}

// Extract returns one citation per qualifying chunk, ordered by chunk
// relevance, then overlap length, then request order. Overlapping answer
// spans are kept: each chunk is a distinct source.
func (e *OverlapCitationExtractor) Extract(ctx context.Context, answer string, chunks []ContextChunk) []Citation {
	citations := make([]Citation, 0)
	if strings.TrimSpace(answer) == "" || len(chunks) == 0 {
		return citations
	}

	logger := observability.FromContext(ctx)
	answerTokens := tokenize(answer)

	scored := make([]scoredCitation, 0, len(chunks))
	for i, chunk := range chunks {
		chunkTokens := tokenize(chunk.Text)
		length, end := longestSharedRun(answerTokens, chunkTokens)
		if length == 0 {
			continue
		}

		start := answerTokens[end-length+1].start
		stop := answerTokens[end].end
		spanChars := utf8.RuneCountInString(answer[start:stop])

		if spanChars < e.config.MinOverlapChars && length < e.config.MinOverlapTokens {
			continue
		}

		chunkChars := utf8.RuneCountInString(strings.TrimSpace(chunk.Text))
		confidence := 1.0
		if chunkChars > 0 {
			confidence = min(1.0, float64(spanChars)/float64(chunkChars))
		}

		scored = append(scored, scoredCitation{
			citation: Citation{
				ChunkID:    chunk.ID,
				SourceRef:  chunk.SourceRef,
				Start:      start,
				End:        stop,
				Confidence: confidence,
			},
			relevance: chunk.Relevance,
			overlap:   spanChars,
			order:     i,
		})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].relevance != scored[b].relevance {
			return scored[a].relevance > scored[b].relevance
		}
		if scored[a].overlap != scored[b].overlap {
			return scored[a].overlap > scored[b].overlap
		}
		return scored[a].order < scored[b].order
	})

	for _, s := range scored {
		citations = append(citations, s.citation)
	}

	logger.Debug("citations extracted",
		observability.Int("chunks", len(chunks)),
		observability.Int("citations", len(citations)))

	return citations
}

// longestSharedRun finds the longest contiguous run of equal tokens present in
// both sequences. It returns the run length and the index of its last token in
// a. Ties keep the earliest run in a.
func longestSharedRun(a, b []token) (int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	bestLen, bestEnd := 0, 0

	for i := range a {
		for j := range b {
			if a[i].norm == b[j].norm {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > bestLen {
					bestLen = cur[j+1]
					bestEnd = i
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
	}

	return bestLen, bestEnd
}

// tokenize splits text on whitespace and records byte offsets of each word
// with leading and trailing punctuation removed.
func tokenize(text string) []token {
	var tokens []token

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		trimmedLeft := strings.TrimLeftFunc(word, isTrimmable)
		s := start + len(word) - len(trimmedLeft)
		trimmed := strings.TrimRightFunc(trimmedLeft, isTrimmable)
		if trimmed != "" {
			tokens = append(tokens, token{
				norm:  strings.ToLower(trimmed),
				start: s,
				end:   s + len(trimmed),
			})
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(text))

	return tokens
}

func isTrimmable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
