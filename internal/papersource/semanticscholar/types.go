// Package semanticscholar provides a client for the Semantic Scholar Graph
// API, implementing the papersource.PaperSource interface.
//
// API documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Data contains the papers returned for this page.
	Data []PaperRecord `json:"data"`
}

// PaperRecord represents a single paper in the API response. Fields the API
// returns as null decode to zero values.
type PaperRecord struct {
	// PaperID is the Semantic Scholar unique identifier.
	PaperID string `json:"paperId"`

	// Title is the paper title.
	Title string `json:"title"`

	// Abstract is the abstract text; often absent.
	Abstract string `json:"abstract"`

	// Authors is the list of paper authors.
	Authors []Author `json:"authors"`

	// Year is the publication year; 0 when unknown.
	Year int `json:"year"`

	// CitationCount is the number of citations received.
	CitationCount int `json:"citationCount"`

	// URL is the Semantic Scholar landing page URL.
	URL string `json:"url"`

	// Venue is the publication venue (conference or journal name).
	Venue string `json:"venue"`
}

// Author represents a paper author.
type Author struct {
	// AuthorID is the Semantic Scholar author identifier.
	AuthorID string `json:"authorId,omitempty"`

	// Name is the author's display name.
	Name string `json:"name"`
}

// ErrorResponse represents an error payload from the API.
type ErrorResponse struct {
	// Error is the primary error message field.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}
