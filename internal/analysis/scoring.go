// Package analysis contains the pure, synchronous algorithms of the
// pipeline: relevance scoring, theme clustering, methodology classification,
// and final ranking. All functions are deterministic for fixed inputs.
package analysis

import (
	"math"
	"sort"

	"github.com/litreview/litreview-service/internal/domain"
)

// Relevance scoring weights. The citation term uses an absolute cap of 1000
// citations (a universally well-cited paper saturates the term), unlike the
// batch-relative normalization in final ranking.
const (
	relevanceSimilarityWeight = 0.8
	relevanceCitationWeight   = 0.2
	citationCap               = 1000.0
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// A zero-norm vector yields similarity 0 rather than a division error.
// Vectors of different lengths are compared over the shorter prefix.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RelevanceScore combines semantic similarity with an absolute-capped
// citation weight: 0.8*similarity + 0.2*min(citations/1000, 1).
func RelevanceScore(similarity float64, citationCount int) float64 {
	citationWeight := math.Min(float64(citationCount)/citationCap, 1.0)
	return relevanceSimilarityWeight*similarity + relevanceCitationWeight*citationWeight
}

// ScoreRelevance assigns a relevance score to every paper from its embedding
// and returns the collection sorted by descending score. The sort is stable:
// equal scores retain the input (fetch-stage) relative order. paperVecs[i]
// must be the embedding of papers[i].
func ScoreRelevance(papers []*domain.Paper, queryVec []float32, paperVecs [][]float32) []*domain.Paper {
	scored := make([]*domain.Paper, len(papers))
	for i, p := range papers {
		similarity := CosineSimilarity(queryVec, paperVecs[i])
		p.SetRelevanceScore(RelevanceScore(similarity, p.CitationCount))
		scored[i] = p
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].RelevanceScore > *scored[j].RelevanceScore
	})
	return scored
}

// MeanRelevance returns the mean relevance score of the papers, 0 for an
// empty collection. Papers without a score contribute 0.
func MeanRelevance(papers []*domain.Paper) float64 {
	if len(papers) == 0 {
		return 0
	}
	var sum float64
	for _, p := range papers {
		if p.RelevanceScore != nil {
			sum += *p.RelevanceScore
		}
	}
	return sum / float64(len(papers))
}
