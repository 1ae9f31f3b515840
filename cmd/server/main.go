// Package main provides the entry point for the literature pipeline service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/litreview/litreview-service/internal/broadcast"
	"github.com/litreview/litreview-service/internal/config"
	"github.com/litreview/litreview-service/internal/model"
	"github.com/litreview/litreview-service/internal/observability"
	"github.com/litreview/litreview-service/internal/papersource/semanticscholar"
	"github.com/litreview/litreview-service/internal/pipeline"
	httpserver "github.com/litreview/litreview-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("litreview-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Model layer: summaries prefer the remote API and fall back to the
	// local summarizer; embeddings are always computed locally.
	var remote model.Summarizer
	if !cfg.HuggingFace.UseLocal {
		remote = model.NewHFSummarizer(model.HFConfig{
			BaseURL:           cfg.HuggingFace.BaseURL,
			APIToken:          cfg.HuggingFace.APIToken,
			SummaryModel:      cfg.HuggingFace.SummaryModel,
			Timeout:           cfg.HuggingFace.Timeout,
			RequestsPerSecond: cfg.HuggingFace.RequestsPerSecond,
		})
		logger.Info().
			Str("summary_model", cfg.HuggingFace.SummaryModel).
			Bool("authenticated", cfg.HuggingFace.APIToken != "").
			Msg("remote summarizer configured")
	} else {
		logger.Info().Msg("remote summarizer disabled, using local summarizer only")
	}
	models := model.NewClient(remote, logger, metrics)

	// Paper source.
	source := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:    cfg.SemanticScholar.BaseURL,
		APIKey:     cfg.SemanticScholar.APIKey,
		Timeout:    cfg.SemanticScholar.Timeout,
		RateLimit:  cfg.SemanticScholar.RateLimit,
		MaxResults: cfg.SemanticScholar.MaxResults,
	}, nil)
	logger.Info().Str("source", source.Name()).Msg("paper source configured")

	// Pipeline components.
	broadcaster := broadcast.New(cfg.Pipeline.EventJournalCapacity, logger, metrics)
	registry := pipeline.NewRegistry()
	renderer := pipeline.NewMarkdownRenderer(cfg.Pipeline.OutputDir)
	orchestrator := pipeline.NewOrchestrator(
		source, models, broadcaster, registry, renderer, logger, metrics)

	// HTTP server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, registry, orchestrator, broadcaster, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("address", httpCfg.Address).
		Str("output_dir", cfg.Pipeline.OutputDir).
		Msg("litreview-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown. Running pipelines finish in their own goroutines;
	// their sessions stay observable until the process exits.
	logger.Info().Msg("shutting down litreview-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("litreview-service shutdown complete")
	return nil
}
