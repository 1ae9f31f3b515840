package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/litreview/litreview-service/internal/domain"
)

const (
	// topPapersLimit is the length of the report's highlight section.
	topPapersLimit = 10

	// insightsPaperCount is how many top papers feed the key-insights summary.
	insightsPaperCount = 5

	// insightsInputLimit bounds the summarizer input in bytes.
	insightsInputLimit = 2000

	// insightsSummaryMaxLength bounds the key-insights summary in model tokens.
	insightsSummaryMaxLength = 200

	// abstractPreviewLimit bounds abstract previews in theme sections.
	abstractPreviewLimit = 200
)

// buildSynthesis assembles the narrative sections of the report. The insights
// argument is the AI-generated paragraph; empty means summarization produced
// nothing, and a templated manual paragraph is substituted so the synthesis
// is never without a Key Insights section.
func buildSynthesis(
	keywords []string,
	papers []*domain.Paper,
	themes map[string][]*domain.Paper,
	methodologies map[string][]*domain.Paper,
	insights string,
) string {
	var parts []string

	parts = append(parts, buildOverview(keywords, papers, themes, methodologies))
	parts = append(parts, buildThemeSection(themes))
	parts = append(parts, buildMethodologySection(methodologies, len(papers)))
	parts = append(parts, buildTopSection(papers))

	if strings.TrimSpace(insights) == "" {
		insights = manualInsights(keywords, papers, themes)
	}
	parts = append(parts, fmt.Sprintf("\n## Key Insights\n\n%s\n", insights))

	return strings.Join(parts, "\n")
}

// buildOverview produces the title and overview section.
func buildOverview(
	keywords []string,
	papers []*domain.Paper,
	themes map[string][]*domain.Paper,
	methodologies map[string][]*domain.Paper,
) string {
	query := strings.Join(keywords, ", ")
	return fmt.Sprintf(`# Literature Review: %s

## Overview
This literature review analyzed %d academic papers related to %s.
The papers were classified into %d thematic clusters and %d methodological categories.
`, query, len(papers), query, len(themes), len(methodologies))
}

// buildThemeSection lists themes by descending member count, each with its
// top three members by final rank and a bounded abstract preview.
func buildThemeSection(themes map[string][]*domain.Paper) string {
	var b strings.Builder
	b.WriteString("\n## Thematic Analysis\n\n")

	for _, label := range groupLabelsBySize(themes) {
		members := themes[label]
		fmt.Fprintf(&b, "### %s (%d papers)\n\n", label, len(members))

		top := append([]*domain.Paper(nil), members...)
		sort.SliceStable(top, func(i, j int) bool {
			return rankOrLast(top[i]) < rankOrLast(top[j])
		})
		if len(top) > 3 {
			top = top[:3]
		}

		for _, p := range top {
			fmt.Fprintf(&b, "- **%s** (%s)\n", p.Title, yearOrND(p))
			if p.HasAbstract() {
				fmt.Fprintf(&b, "  %s\n\n", previewAbstract(p.Abstract))
			}
		}
	}
	return b.String()
}

// buildMethodologySection lists methodology groups by descending size with
// their share of the collection.
func buildMethodologySection(methodologies map[string][]*domain.Paper, total int) string {
	var b strings.Builder
	b.WriteString("\n## Methodological Distribution\n\n")

	for _, label := range groupLabelsBySize(methodologies) {
		count := len(methodologies[label])
		percent := 0.0
		if total > 0 {
			percent = float64(count) / float64(total) * 100
		}
		fmt.Fprintf(&b, "- **%s**: %d papers (%.1f%%)\n", label, count, percent)
	}
	return b.String()
}

// buildTopSection renders the top-ranked papers with their bibliographic
// details. Missing years render as "n.d."; a missing relevance score renders
// as "N/A". The display strings are computed before formatting.
func buildTopSection(papers []*domain.Paper) string {
	var b strings.Builder
	b.WriteString("\n## Highly Relevant Papers\n\n")

	limit := len(papers)
	if limit > topPapersLimit {
		limit = topPapersLimit
	}
	for _, p := range papers[:limit] {
		fmt.Fprintf(&b, "**%d. %s**\n\n", p.FinalRank, p.Title)
		fmt.Fprintf(&b, "- Authors: %s\n", formatAuthors(p.Authors))
		fmt.Fprintf(&b, "- Year: %s\n", yearOrND(p))
		fmt.Fprintf(&b, "- Citations: %d\n", p.CitationCount)

		relevance := "N/A"
		if p.RelevanceScore != nil {
			relevance = fmt.Sprintf("%.3f", *p.RelevanceScore)
		}
		fmt.Fprintf(&b, "- Relevance Score: %s\n", relevance)

		if p.URL != "" {
			fmt.Fprintf(&b, "- URL: %s\n", p.URL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// manualInsights produces the fallback key-insights paragraph used when
// summarization fails on both the remote and local paths.
func manualInsights(keywords []string, papers []*domain.Paper, themes map[string][]*domain.Paper) string {
	query := strings.Join(keywords, ", ")
	if len(papers) == 0 {
		return fmt.Sprintf("The literature search on %s returned no analyzable papers.", query)
	}

	top := papers[0]
	insight := fmt.Sprintf(
		"The reviewed literature on %s comprises %d papers. The highest-ranked contribution is %q (%s, %d citations).",
		query, len(papers), top.Title, yearOrND(top), top.CitationCount)

	labels := groupLabelsBySize(themes)
	if len(labels) > 0 {
		insight += fmt.Sprintf(" The dominant theme is %s with %d papers.", labels[0], len(themes[labels[0]]))
	}
	return insight
}

// insightsInput concatenates the top papers' abstracts, bounded to the
// summarizer input limit.
func insightsInput(papers []*domain.Paper) string {
	limit := len(papers)
	if limit > insightsPaperCount {
		limit = insightsPaperCount
	}

	var abstracts []string
	for _, p := range papers[:limit] {
		if p.HasAbstract() {
			abstracts = append(abstracts, p.Abstract)
		}
	}
	return truncateRunes(strings.Join(abstracts, " "), insightsInputLimit)
}

// truncateRunes bounds s to at most limit bytes, backing up so a multi-byte
// rune is never split.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// groupLabelsBySize orders group labels by descending member count, breaking
// ties alphabetically so output is stable.
func groupLabelsBySize(groups map[string][]*domain.Paper) []string {
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if len(groups[labels[i]]) != len(groups[labels[j]]) {
			return len(groups[labels[i]]) > len(groups[labels[j]])
		}
		return labels[i] < labels[j]
	})
	return labels
}

// rankOrLast returns the paper's final rank, or a sentinel sorting unranked
// papers last.
func rankOrLast(p *domain.Paper) int {
	if p.FinalRank > 0 {
		return p.FinalRank
	}
	return int(^uint(0) >> 1)
}

// yearOrND formats a publication year, using "n.d." when unknown.
func yearOrND(p *domain.Paper) string {
	if p.Year == 0 {
		return "n.d."
	}
	return fmt.Sprintf("%d", p.Year)
}

// formatAuthors joins up to three author names, appending "et al." beyond.
func formatAuthors(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}
	shown := authors
	suffix := ""
	if len(authors) > 3 {
		shown = authors[:3]
		suffix = " et al."
	}
	return strings.Join(shown, ", ") + suffix
}

// previewAbstract bounds an abstract for inline display.
func previewAbstract(abstract string) string {
	if len(abstract) <= abstractPreviewLimit {
		return abstract
	}
	return truncateRunes(abstract, abstractPreviewLimit) + "..."
}

// buildReport assembles the final report object from the stage outputs.
func buildReport(
	keywords []string,
	papers []*domain.Paper,
	themes map[string][]*domain.Paper,
	methodologies map[string][]*domain.Paper,
	synthesis string,
) *domain.Report {
	byTheme := make(map[string]int, len(themes))
	themeLabels := make([]string, 0, len(themes))
	for label, members := range themes {
		byTheme[label] = len(members)
		themeLabels = append(themeLabels, label)
	}
	sort.Strings(themeLabels)

	byMethodology := make(map[string]int, len(methodologies))
	methodologyLabels := make([]string, 0, len(methodologies))
	for label, members := range methodologies {
		byMethodology[label] = len(members)
		methodologyLabels = append(methodologyLabels, label)
	}
	sort.Strings(methodologyLabels)

	avgCitations := 0.0
	if len(papers) > 0 {
		total := 0
		for _, p := range papers {
			total += p.CitationCount
		}
		avgCitations = float64(total) / float64(len(papers))
	}

	top := papers
	if len(top) > topPapersLimit {
		top = top[:topPapersLimit]
	}

	return &domain.Report{
		Query:               strings.Join(keywords, ", "),
		TotalPapers:         len(papers),
		PapersByTheme:       byTheme,
		PapersByMethodology: byMethodology,
		TopPapers:           top,
		Synthesis:           synthesis,
		Metadata: map[string]interface{}{
			"themes":        themeLabels,
			"methodologies": methodologyLabels,
			"avg_citations": avgCitations,
		},
	}
}
