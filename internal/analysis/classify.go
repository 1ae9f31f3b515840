package analysis

import (
	"strings"

	"github.com/litreview/litreview-service/internal/domain"
)

// OtherCategory is the bucket for papers matching no taxonomy keyword.
const OtherCategory = "Other"

// Category is one methodology class with its matching keywords.
type Category struct {
	// Name is the category label assigned to matching papers.
	Name string

	// Keywords are matched case-insensitively as substrings of
	// "title + ' ' + abstract".
	Keywords []string
}

// Taxonomy is the fixed, ordered methodology taxonomy. The order is a
// documented contract: when a paper matches two categories with the same
// keyword count, the category listed first wins.
var Taxonomy = []Category{
	{Name: "Experimental", Keywords: []string{"experiment", "experimental", "trial", "controlled", "rct", "randomized"}},
	{Name: "Survey", Keywords: []string{"survey", "questionnaire", "interview", "qualitative", "ethnographic"}},
	{Name: "Case Study", Keywords: []string{"case study", "case-based", "case analysis"}},
	{Name: "Simulation", Keywords: []string{"simulation", "simulated", "monte carlo", "agent-based"}},
	{Name: "Meta-Analysis", Keywords: []string{"meta-analysis", "systematic review", "literature review"}},
	{Name: "Observational", Keywords: []string{"observational", "longitudinal", "cohort", "cross-sectional"}},
	{Name: "Theoretical", Keywords: []string{"theoretical", "framework", "model", "conceptual"}},
	{Name: "Computational", Keywords: []string{"algorithm", "computational", "machine learning", "deep learning", "neural"}},
}

// ClassifyMethodology assigns each paper to exactly one methodology category
// and returns the partition. Keyword occurrences are counted per category
// (substring match, case-insensitive); the highest count wins, with ties
// broken by taxonomy order. Papers matching nothing land in OtherCategory.
// The sum of group sizes always equals the input size.
func ClassifyMethodology(papers []*domain.Paper) map[string][]*domain.Paper {
	groups := make(map[string][]*domain.Paper)

	for _, p := range papers {
		category := classifyOne(p)
		p.Methodology = category
		groups[category] = append(groups[category], p)
	}
	return groups
}

// classifyOne returns the best category for a single paper.
func classifyOne(p *domain.Paper) string {
	text := strings.ToLower(p.Title + " " + p.Abstract)

	best := OtherCategory
	bestCount := 0
	for _, category := range Taxonomy {
		count := 0
		for _, keyword := range category.Keywords {
			if strings.Contains(text, keyword) {
				count++
			}
		}
		// Strict comparison keeps the first category on ties.
		if count > bestCount {
			bestCount = count
			best = category.Name
		}
	}
	return best
}
