package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/synthd/internal/domain"
)

func defaultExtractor() *domain.OverlapCitationExtractor {
	return domain.NewOverlapCitationExtractor(domain.CitationConfig{
		MinOverlapChars:  20,
		MinOverlapTokens: 5,
	})
}

func leaveChunks() []domain.ContextChunk {
	return []domain.ContextChunk{
		{
			ID:        "chunk1",
			SourceRef: "handbook.pdf#p4",
			Text:      "annual leave policy requires manager approval",
			Relevance: 0.9,
		},
		{
			ID:        "chunk2",
			SourceRef: "facilities.md",
			Text:      "Parking spaces are allocated by the facilities team each quarter.",
			Relevance: 0.4,
		},
	}
}

func TestOverlapCitationExtractor_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("should cite only the chunk quoted by the answer", func(t *testing.T) {
		answer := "The annual leave policy requires manager approval before submission."

		citations := defaultExtractor().Extract(ctx, answer, leaveChunks())

		require.Len(t, citations, 1)
		citation := citations[0]
		require.Equal(t, "chunk1", citation.ChunkID)
		require.Equal(t, "handbook.pdf#p4", citation.SourceRef)
		require.Equal(t, "annual leave policy requires manager approval", answer[citation.Start:citation.End])
		require.InDelta(t, 1.0, citation.Confidence, 1e-9)
	})

	t.Run("should match case-insensitively and ignore punctuation", func(t *testing.T) {
		answer := "Remember: ANNUAL LEAVE POLICY, requires manager approval!"

		citations := defaultExtractor().Extract(ctx, answer, leaveChunks())

		require.Len(t, citations, 1)
		require.Equal(t, "chunk1", citations[0].ChunkID)
		require.Equal(t, "ANNUAL LEAVE POLICY, requires manager approval", answer[citations[0].Start:citations[0].End])
	})

	t.Run("should cite on either threshold", func(t *testing.T) {
		chunks := []domain.ContextChunk{
			{ID: "long-words", Text: "internationalization considerations", Relevance: 0.5},
			{ID: "short-words", Text: "a b c d e", Relevance: 0.5},
			{ID: "too-short", Text: "to be", Relevance: 0.5},
		}
		answer := "We weigh internationalization considerations, then a b c d e, to be safe."

		citations := defaultExtractor().Extract(ctx, answer, chunks)

		ids := make([]string, 0, len(citations))
		for _, c := range citations {
			ids = append(ids, c.ChunkID)
		}
		require.ElementsMatch(t, []string{"long-words", "short-words"}, ids)
	})

	t.Run("should order by relevance then overlap length", func(t *testing.T) {
		chunks := []domain.ContextChunk{
			{ID: "low", Text: "employees may carry over five unused days", Relevance: 0.3},
			{ID: "high", Text: "requests must be filed two weeks in advance", Relevance: 0.8},
			{ID: "mid-long", Text: "the carry over limit resets every calendar year in january", Relevance: 0.6},
			{ID: "mid-short", Text: "approval is granted by the direct line manager", Relevance: 0.6},
		}
		answer := "Requests must be filed two weeks in advance. Employees may carry over five unused days. " +
			"The carry over limit resets every calendar year in January. Approval is granted by the direct line manager."

		citations := defaultExtractor().Extract(ctx, answer, chunks)

		require.Len(t, citations, 4)
		require.Equal(t, "high", citations[0].ChunkID)
		require.Equal(t, "mid-long", citations[1].ChunkID)
		require.Equal(t, "mid-short", citations[2].ChunkID)
		require.Equal(t, "low", citations[3].ChunkID)
	})

	t.Run("should keep overlapping spans from distinct chunks", func(t *testing.T) {
		chunks := []domain.ContextChunk{
			{ID: "a", Text: "annual leave policy requires manager approval", Relevance: 0.9},
			{ID: "b", Text: "the policy requires manager approval in writing", Relevance: 0.7},
		}
		answer := "The annual leave policy requires manager approval."

		citations := defaultExtractor().Extract(ctx, answer, chunks)

		require.Len(t, citations, 2)
		require.Less(t, citations[1].Start, citations[0].End)
	})

	t.Run("should return an empty list for empty input", func(t *testing.T) {
		require.NotNil(t, defaultExtractor().Extract(ctx, "", leaveChunks()))
		require.Empty(t, defaultExtractor().Extract(ctx, "", leaveChunks()))
		require.Empty(t, defaultExtractor().Extract(ctx, "some answer", nil))
	})

	t.Run("should produce valid spans on multibyte text", func(t *testing.T) {
		chunks := []domain.ContextChunk{
			{ID: "fr", Text: "les congés annuels nécessitent l'accord préalable du responsable", Relevance: 0.9},
		}
		answer := "Ici, les congés annuels nécessitent l'accord préalable du responsable."

		citations := defaultExtractor().Extract(ctx, answer, chunks)

		require.Len(t, citations, 1)
		require.Equal(t,
			"les congés annuels nécessitent l'accord préalable du responsable",
			answer[citations[0].Start:citations[0].End])
	})
}
