package domain

// Report aggregates the outputs of a completed pipeline run.
//
// Invariant: PapersByTheme and PapersByMethodology are partitions of the
// analyzed collection; each sums to TotalPapers.
type Report struct {
	// Query is the joined keyword query the report answers.
	Query string `json:"query"`

	// TotalPapers is the number of papers analyzed.
	TotalPapers int `json:"total_papers"`

	// PapersByTheme maps theme label to member count.
	PapersByTheme map[string]int `json:"papers_by_theme"`

	// PapersByMethodology maps methodology category to member count.
	PapersByMethodology map[string]int `json:"papers_by_methodology"`

	// TopPapers is a prefix of the final ranked collection.
	TopPapers []*Paper `json:"top_papers"`

	// Synthesis is the generated narrative text. Never empty for a
	// completed run.
	Synthesis string `json:"synthesis"`

	// Metadata carries derived summary statistics.
	Metadata map[string]interface{} `json:"metadata"`
}
