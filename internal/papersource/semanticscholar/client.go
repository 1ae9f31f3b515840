package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/litreview/litreview-service/internal/domain"
	"github.com/litreview/litreview-service/internal/papersource"
)

const (
	// DefaultBaseURL is the base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the request rate for unauthenticated clients.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default rate limiter burst.
	DefaultBurstSize = 2

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults caps the papers requested per search.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the field list requested from the API.
	paperFields = "paperId,title,abstract,authors,year,citationCount,url,venue"

	// sourceName identifies this source in errors, logs and metrics.
	sourceName = "semantic_scholar"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Config contains configuration for the Semantic Scholar client.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey enables authenticated requests with higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize is the rate limiter burst. Defaults to DefaultBurstSize.
	BurstSize int

	// MaxResults caps papers per search. Defaults to DefaultMaxResults.
	MaxResults int
}

// Client implements papersource.PaperSource for Semantic Scholar.
type Client struct {
	httpClient *papersource.HTTPClient
	config     Config
}

var _ papersource.PaperSource = (*Client)(nil)

// NewClient creates a Semantic Scholar client. If httpClient is nil, one is
// created from the configuration.
func NewClient(cfg Config, httpClient *papersource.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = papersource.NewHTTPClient(papersource.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{httpClient: httpClient, config: cfg}
}

// Search queries Semantic Scholar for papers matching the keywords. Records
// missing an identifier or title are skipped rather than failing the search.
func (c *Client) Search(ctx context.Context, params papersource.SearchParams) (*papersource.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalServiceError(sourceName, 0, "search request failed", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, &domain.SerializationError{Source: sourceName, Message: err.Error()}
	}

	papers, skipped := convertRecords(searchResp.Data)

	return &papersource.SearchResult{
		Papers:         papers,
		TotalResults:   searchResp.Total,
		Skipped:        skipped,
		Source:         sourceName,
		SearchDuration: time.Since(start),
	}, nil
}

// Name returns the source name.
func (c *Client) Name() string {
	return sourceName
}

// buildSearchURL constructs the search endpoint URL. Keywords are joined with
// spaces into a single query string.
func (c *Client) buildSearchURL(params papersource.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	searchURL := baseURL.JoinPath("paper", "search")

	limit := params.MaxResults
	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}

	q := searchURL.Query()
	q.Set("query", strings.Join(params.Keywords, " "))
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(limit))
	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// handleErrorResponse maps non-2xx responses to typed errors.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalServiceError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	message := string(body)
	var errResp ErrorResponse
	if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil {
		if errResp.Error != "" {
			message = errResp.Error
		} else if errResp.Message != "" {
			message = errResp.Message
		}
	}
	return domain.NewExternalServiceError(sourceName, resp.StatusCode, message, nil)
}

// convertRecords maps API records to domain papers, dropping malformed ones.
func convertRecords(records []PaperRecord) ([]*domain.Paper, int) {
	papers := make([]*domain.Paper, 0, len(records))
	skipped := 0
	for _, record := range records {
		p, ok := convertRecord(record)
		if !ok {
			skipped++
			continue
		}
		papers = append(papers, p)
	}
	return papers, skipped
}

// convertRecord maps one API record to a domain paper. A record without both
// an identifier and a title is unusable downstream and reports ok=false.
func convertRecord(record PaperRecord) (*domain.Paper, bool) {
	if record.PaperID == "" || strings.TrimSpace(record.Title) == "" {
		return nil, false
	}

	authors := make([]string, 0, len(record.Authors))
	for _, a := range record.Authors {
		if a.Name != "" {
			authors = append(authors, a.Name)
		}
	}

	return &domain.Paper{
		PaperID:       record.PaperID,
		Title:         strings.TrimSpace(record.Title),
		Abstract:      strings.TrimSpace(record.Abstract),
		Authors:       authors,
		Year:          record.Year,
		CitationCount: record.CitationCount,
		URL:           record.URL,
		Venue:         record.Venue,
	}, true
}
