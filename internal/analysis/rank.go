package analysis

import (
	"sort"

	"github.com/litreview/litreview-service/internal/domain"
)

// Final ranking weights. Citation count is normalized against the batch
// maximum here, unlike the absolute cap used in relevance scoring: relevance
// rewards universally well-cited papers, ranking orders papers relative to
// the current result set.
const (
	rankRelevanceWeight = 0.40
	rankCitationWeight  = 0.30
	rankRecencyWeight   = 0.20
	rankAbstractWeight  = 0.10

	abstractPresentQuality = 1.0
	abstractMissingQuality = 0.5
)

// RankPapers orders papers by a four-factor weighted score and assigns dense
// ranks 1..N with no gaps or repeats. The sort is stable: equal scores keep
// the input relative order. The returned scores align with the returned
// (ranked) paper order.
func RankPapers(papers []*domain.Paper) ([]*domain.Paper, []float64) {
	n := len(papers)
	if n == 0 {
		return nil, nil
	}

	maxCitations := 0
	minYear, maxYear := 0, 0
	for _, p := range papers {
		if p.CitationCount > maxCitations {
			maxCitations = p.CitationCount
		}
		if p.Year != 0 {
			if minYear == 0 || p.Year < minYear {
				minYear = p.Year
			}
			if p.Year > maxYear {
				maxYear = p.Year
			}
		}
	}

	type rankedPaper struct {
		paper *domain.Paper
		score float64
	}
	scored := make([]rankedPaper, n)
	for i, p := range papers {
		scored[i] = rankedPaper{paper: p, score: weightedScore(p, maxCitations, minYear, maxYear)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	ranked := make([]*domain.Paper, n)
	scores := make([]float64, n)
	for i, rp := range scored {
		rp.paper.FinalRank = i + 1
		ranked[i] = rp.paper
		scores[i] = rp.score
	}
	return ranked, scores
}

// weightedScore computes the batch-normalized ranking score for one paper.
func weightedScore(p *domain.Paper, maxCitations, minYear, maxYear int) float64 {
	var relevance float64
	if p.RelevanceScore != nil {
		relevance = *p.RelevanceScore
	}

	var citations float64
	if maxCitations > 0 {
		citations = float64(p.CitationCount) / float64(maxCitations)
	}

	var recency float64
	if p.Year != 0 && maxYear > minYear {
		recency = float64(p.Year-minYear) / float64(maxYear-minYear)
	}

	abstractQuality := abstractMissingQuality
	if p.HasAbstract() {
		abstractQuality = abstractPresentQuality
	}

	return rankRelevanceWeight*relevance +
		rankCitationWeight*citations +
		rankRecencyWeight*recency +
		rankAbstractWeight*abstractQuality
}
