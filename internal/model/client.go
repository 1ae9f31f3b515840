// Package model provides the embedding and summarization clients used by the
// analysis pipeline. Embeddings are always computed locally; summaries prefer
// the remote Hugging Face model and degrade to a local extractive summarizer
// when the remote path fails.
package model

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/litreview/litreview-service/internal/observability"
)

// Summarizer produces a summary for a block of text. maxLength bounds the
// summary in model tokens; a non-positive value lets the implementation pick
// its own bound.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Metric label values for model call paths.
const (
	opEmbed     = "embed"
	opSummarize = "summarize"

	pathLocal  = "local"
	pathRemote = "remote"
)

// Client is the pipeline's single entry point for model calls. Embed always
// runs on the local embedder. Summarize tries the remote summarizer first and
// falls back to the local one on any remote error, so a pipeline run never
// fails because the remote model is down.
type Client struct {
	embedder Embedder
	remote   Summarizer
	local    Summarizer
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewClient creates a model client. remote may be nil, in which case all
// summaries use the local path. metrics may be nil.
func NewClient(remote Summarizer, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		embedder: NewLocalEmbedder(),
		remote:   remote,
		local:    NewLocalSummarizer(3),
		logger:   logger.With().Str("component", "model_client").Logger(),
		metrics:  metrics,
	}
}

// Embed returns one embedding per text, always via the local embedder.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := c.embedder.Embed(ctx, texts)
	c.recordRequest(opEmbed, pathLocal, time.Since(start))
	if err != nil {
		c.recordFailure(opEmbed, pathLocal)
		return nil, err
	}
	return vectors, nil
}

// Summarize returns a summary of text no longer than maxLength tokens. A
// remote failure is logged and counted, never propagated: the local
// summarizer serves the degraded result under the same bound.
func (c *Client) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	if c.remote != nil {
		start := time.Now()
		summary, err := c.remote.Summarize(ctx, text, maxLength)
		c.recordRequest(opSummarize, pathRemote, time.Since(start))
		if err == nil {
			return summary, nil
		}

		c.recordFailure(opSummarize, pathRemote)
		if c.metrics != nil {
			c.metrics.RecordModelFallback(opSummarize)
		}
		c.logger.Warn().
			Err(err).
			Msg("remote summarization failed, serving local summary")
	}

	start := time.Now()
	summary, err := c.local.Summarize(ctx, text, maxLength)
	c.recordRequest(opSummarize, pathLocal, time.Since(start))
	if err != nil {
		c.recordFailure(opSummarize, pathLocal)
		return "", err
	}
	return summary, nil
}

func (c *Client) recordRequest(operation, path string, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordModelRequest(operation, path, elapsed.Seconds())
	}
}

func (c *Client) recordFailure(operation, path string) {
	if c.metrics != nil {
		c.metrics.RecordModelRequestFailed(operation, path)
	}
}
