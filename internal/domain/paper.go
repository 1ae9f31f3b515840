// Package domain contains the core data model for the literature pipeline:
// papers, sessions, events, and reports, together with the error taxonomy
// shared by all components.
package domain

import "fmt"

// Paper represents a single bibliographic record flowing through the pipeline.
// The fetch stage populates the bibliographic fields; later stages each own
// exactly one of the pipeline-assigned fields and never overwrite a field
// assigned by an earlier stage.
type Paper struct {
	// PaperID is the source-assigned identifier, unique within a session.
	PaperID string `json:"paper_id"`

	// Title is the paper title (required).
	Title string `json:"title"`

	// Abstract is the abstract text, empty when the source has none.
	Abstract string `json:"abstract,omitempty"`

	// Authors is the ordered list of author names.
	Authors []string `json:"authors"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty"`

	// CitationCount is the number of citations (never negative).
	CitationCount int `json:"citation_count"`

	// URL is a link to the paper, if available.
	URL string `json:"url,omitempty"`

	// Venue is the publication venue, if available.
	Venue string `json:"venue,omitempty"`

	// RelevanceScore in [0,1], assigned by the relevance stage.
	RelevanceScore *float64 `json:"relevance_score,omitempty"`

	// Theme is the cluster label assigned by the theme stage.
	Theme string `json:"theme,omitempty"`

	// Methodology is the category assigned by the methodology stage.
	Methodology string `json:"methodology,omitempty"`

	// FinalRank is the dense 1..N rank assigned by the ranking stage.
	FinalRank int `json:"final_rank,omitempty"`
}

// Validate checks the invariants a paper must satisfy when it enters the
// pipeline. Pipeline-assigned fields are validated only if already set.
func (p *Paper) Validate() error {
	if p.PaperID == "" {
		return NewValidationError("paper_id", "must not be empty")
	}
	if p.Title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if p.CitationCount < 0 {
		return NewValidationError("citation_count", fmt.Sprintf("must not be negative, got %d", p.CitationCount))
	}
	if p.RelevanceScore != nil && (*p.RelevanceScore < 0 || *p.RelevanceScore > 1) {
		return NewValidationError("relevance_score", fmt.Sprintf("must be in [0,1], got %g", *p.RelevanceScore))
	}
	if p.FinalRank < 0 {
		return NewValidationError("final_rank", "must be positive when set")
	}
	return nil
}

// HasAbstract reports whether the paper carries a non-empty abstract.
func (p *Paper) HasAbstract() bool {
	return p.Abstract != ""
}

// EmbeddingText returns the text embedded for similarity and clustering:
// the title, followed by the abstract when present.
func (p *Paper) EmbeddingText() string {
	if p.Abstract == "" {
		return p.Title
	}
	return p.Title + " " + p.Abstract
}

// SetRelevanceScore records the relevance score assigned by the scoring stage.
func (p *Paper) SetRelevanceScore(score float64) {
	p.RelevanceScore = &score
}
