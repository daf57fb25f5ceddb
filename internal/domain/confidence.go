package domain

// ConfidenceWeights holds the weighting of the confidence formula.
type ConfidenceWeights struct {
	Relevance    float64 `env:"CONFIDENCE_WEIGHT_RELEVANCE"    envDefault:"0.5"`
	Coverage     float64 `env:"CONFIDENCE_WEIGHT_COVERAGE"     envDefault:"0.3"`
	Completeness float64 `env:"CONFIDENCE_WEIGHT_COMPLETENESS" envDefault:"0.2"`
}

// DefaultConfidenceWeights returns the 0.5 / 0.3 / 0.2 weighting.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Relevance:    0.5,
		Coverage:     0.3,
		Completeness: 0.2,
	}
}

// WeightedConfidenceScorer computes
//
//	clamp(Wr*avg(cited relevance) + Wc*citations/max(1, chunks) + Wt*(1-truncated), 0, 1)
type WeightedConfidenceScorer struct {
	weights ConfidenceWeights
}

// NewWeightedConfidenceScorer creates a scorer with the given weights.
func NewWeightedConfidenceScorer(weights ConfidenceWeights) *WeightedConfidenceScorer {
	return &WeightedConfidenceScorer{weights: weights}
}

// Score returns a confidence in [0, 1].
func (s *WeightedConfidenceScorer) Score(req *SynthesisRequest, citations []Citation, truncated bool) float64 {
	if req == nil {
		return 0
	}

	var relevanceSum float64
	var cited int
	for _, citation := range citations {
		chunk, ok := req.Chunk(citation.ChunkID)
		if !ok {
			continue
		}
		relevanceSum += chunk.Relevance
		cited++
	}

	var avgRelevance float64
	if cited > 0 {
		avgRelevance = relevanceSum / float64(cited)
	}

	coverage := float64(cited) / float64(max(1, len(req.Chunks)))

	completeness := 1.0
	if truncated {
		completeness = 0
	}

	score := s.weights.Relevance*avgRelevance +
		s.weights.Coverage*coverage +
		s.weights.Completeness*completeness

	return clamp(score, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
