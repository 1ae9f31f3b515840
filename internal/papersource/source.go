// Package papersource provides clients for fetching academic papers from
// external search APIs. Implementations transform source-specific responses
// into domain papers, skipping records too malformed to use.
package papersource

import (
	"context"
	"time"

	"github.com/litreview/litreview-service/internal/domain"
)

// SearchParams defines the parameters for a paper search.
type SearchParams struct {
	// Keywords are the search terms. They are joined into a single query
	// string in a source-specific way.
	Keywords []string

	// MaxResults limits the number of papers returned. A value of 0 uses
	// the source's default limit.
	MaxResults int
}

// SearchResult contains the outcome of a paper search.
type SearchResult struct {
	// Papers are the fetched papers. May be empty when nothing matched.
	Papers []*domain.Paper

	// TotalResults is the total match count reported by the source,
	// regardless of the result limit.
	TotalResults int

	// Skipped counts records dropped because they were malformed.
	Skipped int

	// Source identifies which paper source produced the result.
	Source string

	// SearchDuration is the wall time of the search, including network
	// latency and parsing.
	SearchDuration time.Duration
}

// PaperSource is implemented by each academic search API client.
// Implementations respect context cancellation, apply their own rate
// limiting, and return *domain.ExternalServiceError on API failures.
type PaperSource interface {
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// Name returns a human-readable source name for logging and metrics.
	Name() string
}
