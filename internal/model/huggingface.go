package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/litreview/litreview-service/internal/domain"
)

const (
	// defaultHFBaseURL is the Hugging Face hosted inference endpoint.
	defaultHFBaseURL = "https://api-inference.huggingface.co/models"

	// defaultSummaryModel is the summarization model used when none is configured.
	defaultSummaryModel = "facebook/bart-large-cnn"

	// defaultSummaryMaxLength is the token bound applied when the caller
	// passes no bound.
	defaultSummaryMaxLength = 250

	// summaryMinLength is the minimum generation length requested from the
	// model. It is reduced when the caller's bound is tighter.
	summaryMinLength = 50

	// maxHFResponseBytes bounds how much of a response body is read.
	maxHFResponseBytes = 4 << 20
)

// HFConfig holds the parameters for the Hugging Face inference client.
type HFConfig struct {
	// BaseURL is the inference API base URL; the model name is appended.
	BaseURL string

	// APIToken is the bearer token. Empty means anonymous (heavily throttled).
	APIToken string

	// SummaryModel is the model identifier used for summarization.
	SummaryModel string

	// Timeout bounds each HTTP call.
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
}

// DefaultHFConfig returns the standard Hugging Face client configuration.
func DefaultHFConfig() HFConfig {
	return HFConfig{
		BaseURL:           defaultHFBaseURL,
		SummaryModel:      defaultSummaryModel,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 2,
	}
}

// summaryRequest is the request body for the inference summarization task.
type summaryRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters summaryParameters `json:"parameters"`
	Options    summaryOptions    `json:"options"`
}

// summaryParameters tunes the summarization generation.
type summaryParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

// summaryOptions controls inference API behavior.
type summaryOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// summaryResponseItem is one element of the inference API response array.
type summaryResponseItem struct {
	SummaryText string `json:"summary_text"`
}

// hfErrorResponse is the error payload returned on non-200 status codes.
type hfErrorResponse struct {
	Error string `json:"error"`
}

// HFSummarizer calls the Hugging Face inference API to produce abstractive
// summaries. Calls are rate limited and bounded by the configured timeout.
type HFSummarizer struct {
	httpClient *http.Client
	cfg        HFConfig
	limiter    *rate.Limiter
}

// NewHFSummarizer creates an HFSummarizer, applying defaults for any zero
// configuration values.
func NewHFSummarizer(cfg HFConfig) *HFSummarizer {
	defaults := DefaultHFConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.SummaryModel == "" {
		cfg.SummaryModel = defaults.SummaryModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &HFSummarizer{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:     cfg,
		limiter: limiter,
	}
}

// Summarize sends text to the summarization model and returns a summary of at
// most maxLength tokens (defaultSummaryMaxLength when non-positive). Failures
// are returned as *domain.ExternalServiceError so callers can distinguish
// transient conditions.
func (s *HFSummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("huggingface: rate limit wait: %w", err)
	}

	if maxLength <= 0 {
		maxLength = defaultSummaryMaxLength
	}
	minLength := summaryMinLength
	if minLength >= maxLength {
		minLength = maxLength / 2
	}

	body, err := json.Marshal(summaryRequest{
		Inputs: text,
		Parameters: summaryParameters{
			MaxLength: maxLength,
			MinLength: minLength,
			DoSample:  false,
		},
		Options: summaryOptions{WaitForModel: true},
	})
	if err != nil {
		return "", fmt.Errorf("huggingface: marshal request: %w", err)
	}

	endpoint := s.cfg.BaseURL + "/" + s.cfg.SummaryModel
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("huggingface: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.cfg.APIToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIToken)
	}

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.NewExternalServiceError("huggingface", 0, "request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxHFResponseBytes))
	if err != nil {
		return "", domain.NewExternalServiceError("huggingface", 0, "read response body", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp hfErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return "", domain.NewExternalServiceError("huggingface", httpResp.StatusCode, msg, nil)
	}

	var items []summaryResponseItem
	if err := json.Unmarshal(respBody, &items); err != nil {
		return "", domain.NewExternalServiceError("huggingface", httpResp.StatusCode, "unmarshal response", err)
	}
	if len(items) == 0 || strings.TrimSpace(items[0].SummaryText) == "" {
		return "", domain.NewExternalServiceError("huggingface", httpResp.StatusCode, "response contains no summary", nil)
	}
	return strings.TrimSpace(items[0].SummaryText), nil
}
