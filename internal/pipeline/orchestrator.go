// Package pipeline contains the session registry and the orchestrator that
// drives the seven analysis stages: fetch, relevance, themes, methodology,
// ranking, synthesis, and render. Each stage emits a StageStart event, zero
// or more StageUpdate events, and exactly one StageComplete or StageError.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/litreview/litreview-service/internal/analysis"
	"github.com/litreview/litreview-service/internal/broadcast"
	"github.com/litreview/litreview-service/internal/domain"
	"github.com/litreview/litreview-service/internal/observability"
	"github.com/litreview/litreview-service/internal/papersource"
)

// ModelClient is the orchestrator's view of the model layer.
type ModelClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

// Orchestrator executes pipeline sessions. One orchestrator serves all
// sessions; each Run call drives a single session to a terminal state.
type Orchestrator struct {
	source      papersource.PaperSource
	models      ModelClient
	broadcaster *broadcast.Broadcaster
	registry    *Registry
	renderer    Renderer
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewOrchestrator creates an orchestrator. metrics may be nil.
func NewOrchestrator(
	source papersource.PaperSource,
	models ModelClient,
	broadcaster *broadcast.Broadcaster,
	registry *Registry,
	renderer Renderer,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		source:      source,
		models:      models,
		broadcaster: broadcaster,
		registry:    registry,
		renderer:    renderer,
		logger:      logger.With().Str("component", "orchestrator").Logger(),
		metrics:     metrics,
	}
}

// Run drives a session through all seven stages to a terminal state. The
// caller marks the session running before handing it off (so status probes
// never see the created state); Run refuses any session not in that state.
// It never returns an error: failures are captured on the session and
// broadcast, since Run executes detached from the request that started it.
func (o *Orchestrator) Run(ctx context.Context, session *domain.Session) {
	logger := observability.WithSessionContext(o.logger, session.ID)

	snapshot, err := o.registry.Get(session.ID)
	if err != nil {
		logger.Error().Err(err).Msg("cannot start pipeline")
		return
	}
	if snapshot.State != domain.SessionRunning {
		logger.Error().Str("state", string(snapshot.State)).
			Msg("cannot start pipeline: session is not running")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordPipelineStarted()
	}
	logger.Info().Strs("keywords", session.Keywords).Int("max_papers", session.MaxPapers).
		Msg("pipeline started")

	start := time.Now()
	durations := make(map[int]time.Duration)

	var (
		papers        []*domain.Paper
		themes        map[string][]*domain.Paper
		methodologies map[string][]*domain.Paper
		report        *domain.Report
		artifactPath  string
	)

	stages := []struct {
		index int
		run   func(context.Context) error
	}{
		{1, func(ctx context.Context) error {
			var err error
			papers, err = o.fetchStage(ctx, session)
			return err
		}},
		{2, func(ctx context.Context) error {
			var err error
			papers, err = o.relevanceStage(ctx, session, papers)
			return err
		}},
		{3, func(ctx context.Context) error {
			var err error
			themes, err = o.themesStage(ctx, session, papers)
			return err
		}},
		{4, func(ctx context.Context) error {
			var err error
			methodologies, err = o.methodologyStage(ctx, session, papers)
			return err
		}},
		{5, func(ctx context.Context) error {
			var err error
			papers, err = o.rankingStage(ctx, session, papers)
			return err
		}},
		{6, func(ctx context.Context) error {
			var err error
			report, err = o.synthesisStage(ctx, session, papers, themes, methodologies)
			return err
		}},
		{7, func(ctx context.Context) error {
			var err error
			artifactPath, err = o.renderStage(ctx, session, report)
			return err
		}},
	}

	for _, stage := range stages {
		o.stageStart(session.ID, stage.index)
		stageStarted := time.Now()
		err := stage.run(ctx)
		durations[stage.index] = time.Since(stageStarted)

		if err != nil {
			o.fail(logger, session, stage.index, err, time.Since(start))
			return
		}
		if o.metrics != nil {
			o.metrics.RecordStageDuration(domain.StageName(stage.index), durations[stage.index].Seconds())
		}
	}

	total := time.Since(start)
	result := &domain.SessionResult{
		Report:         report,
		ArtifactPath:   artifactPath,
		StageDurations: durations,
		TotalDuration:  total,
	}
	if err := o.registry.Complete(session.ID, result); err != nil {
		logger.Error().Err(err).Msg("cannot complete session")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordPipelineCompleted(total.Seconds())
	}

	o.publish(session.ID, domain.Event{
		Type:    domain.EventPipelineComplete,
		Message: "Pipeline completed successfully",
		Result: map[string]interface{}{
			"total_papers":  report.TotalPapers,
			"artifact_path": artifactPath,
		},
	})
	logger.Info().Dur("duration", total).Int("papers", report.TotalPapers).
		Msg("pipeline completed")
}

// fail records a stage failure on the session and broadcasts it. The failure
// message is preserved verbatim for clients.
func (o *Orchestrator) fail(logger zerolog.Logger, session *domain.Session, stage int, err error, elapsed time.Duration) {
	message := err.Error()

	o.publish(session.ID, domain.Event{
		Type:    domain.EventStageError,
		Stage:   stage,
		Message: message,
	})
	if o.metrics != nil {
		o.metrics.RecordStageFailure(domain.StageName(stage))
		o.metrics.RecordPipelineFailed(elapsed.Seconds())
	}

	if regErr := o.registry.Fail(session.ID, &domain.SessionError{Message: message, Stage: stage}); regErr != nil {
		logger.Error().Err(regErr).Msg("cannot record session failure")
	}

	o.publish(session.ID, domain.Event{
		Type:    domain.EventPipelineError,
		Stage:   stage,
		Message: message,
	})
	logger.Error().Err(err).Int("stage", stage).Str("stage_name", domain.StageName(stage)).
		Msg("pipeline failed")
}

// fetchStage retrieves papers from the configured source. An empty result is
// a fatal NoResultsError.
func (o *Orchestrator) fetchStage(ctx context.Context, session *domain.Session) ([]*domain.Paper, error) {
	o.stageUpdate(session.ID, 1, 10,
		fmt.Sprintf("Searching %s for: %s", o.source.Name(), strings.Join(session.Keywords, ", ")))
	o.stageUpdate(session.ID, 1, 50, "Fetching paper metadata...")

	result, err := o.source.Search(ctx, papersource.SearchParams{
		Keywords:   session.Keywords,
		MaxResults: session.MaxPapers,
	})
	if err != nil {
		return nil, &domain.StageExecutionError{Stage: 1, Cause: err}
	}

	o.stageUpdate(session.ID, 1, 90, fmt.Sprintf("Found %d papers", len(result.Papers)))
	if len(result.Papers) == 0 {
		return nil, &domain.NoResultsError{Keywords: session.Keywords}
	}
	if o.metrics != nil {
		o.metrics.RecordPapersFetched(len(result.Papers))
	}

	o.stageComplete(session.ID, 1, map[string]interface{}{
		"papers_count": len(result.Papers),
		"papers":       paperPreviews(result.Papers, 5),
	})
	return result.Papers, nil
}

// relevanceStage scores papers against the query and sorts by score.
func (o *Orchestrator) relevanceStage(ctx context.Context, session *domain.Session, papers []*domain.Paper) ([]*domain.Paper, error) {
	o.stageUpdate(session.ID, 2, 10, "Generating embeddings for query...")

	queryVecs, err := o.models.Embed(ctx, []string{strings.Join(session.Keywords, " ")})
	if err != nil {
		return nil, &domain.StageExecutionError{Stage: 2, Cause: err}
	}

	o.stageUpdate(session.ID, 2, 30, "Generating embeddings for papers...")
	paperVecs, err := o.embedPapers(ctx, papers)
	if err != nil {
		return nil, &domain.StageExecutionError{Stage: 2, Cause: err}
	}

	o.stageUpdate(session.ID, 2, 70, "Calculating similarity scores...")
	scored := analysis.ScoreRelevance(papers, queryVecs[0], paperVecs)

	topPapers := make([]map[string]interface{}, 0, 5)
	for _, p := range scored {
		if len(topPapers) == 5 {
			break
		}
		topPapers = append(topPapers, map[string]interface{}{
			"title": p.Title,
			"score": *p.RelevanceScore,
		})
	}

	o.stageComplete(session.ID, 2, map[string]interface{}{
		"papers_scored": len(scored),
		"avg_score":     analysis.MeanRelevance(scored),
		"top_papers":    topPapers,
	})
	return scored, nil
}

// themesStage clusters papers into labeled themes.
func (o *Orchestrator) themesStage(ctx context.Context, session *domain.Session, papers []*domain.Paper) (map[string][]*domain.Paper, error) {
	o.stageUpdate(session.ID, 3, 10, "Analyzing paper content for themes...")

	embeddings, err := o.embedPapers(ctx, papers)
	if err != nil {
		return nil, &domain.StageExecutionError{Stage: 3, Cause: err}
	}

	o.stageUpdate(session.ID, 3, 50, "Clustering papers into themes...")
	themes := analysis.ClusterThemes(papers, embeddings)

	counts := make(map[string]interface{}, len(themes))
	for label, members := range themes {
		counts[label] = len(members)
	}
	o.stageComplete(session.ID, 3, map[string]interface{}{
		"themes_found": len(themes),
		"themes":       counts,
	})
	return themes, nil
}

// methodologyStage classifies papers by research methodology.
func (o *Orchestrator) methodologyStage(ctx context.Context, session *domain.Session, papers []*domain.Paper) (map[string][]*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StageExecutionError{Stage: 4, Cause: err}
	}
	o.stageUpdate(session.ID, 4, 20, "Analyzing research methodologies...")

	methodologies := analysis.ClassifyMethodology(papers)

	o.stageUpdate(session.ID, 4, 80,
		fmt.Sprintf("Classified %d/%d papers...", len(papers), len(papers)))

	distribution := make(map[string]interface{}, len(methodologies))
	for label, members := range methodologies {
		distribution[label] = len(members)
	}
	o.stageComplete(session.ID, 4, map[string]interface{}{
		"methodologies_found": len(methodologies),
		"distribution":        distribution,
	})
	return methodologies, nil
}

// rankingStage orders papers by the weighted multi-factor score.
func (o *Orchestrator) rankingStage(ctx context.Context, session *domain.Session, papers []*domain.Paper) ([]*domain.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StageExecutionError{Stage: 5, Cause: err}
	}
	o.stageUpdate(session.ID, 5, 20, "Calculating final rankings...")

	ranked, scores := analysis.RankPapers(papers)

	o.stageUpdate(session.ID, 5, 80, "Rankings calculated")

	limit := len(ranked)
	if limit > 10 {
		limit = 10
	}
	top10 := make([]map[string]interface{}, 0, limit)
	for i, p := range ranked[:limit] {
		top10 = append(top10, map[string]interface{}{
			"rank":  p.FinalRank,
			"title": p.Title,
			"score": math.Round(scores[i]*1000) / 1000,
		})
	}
	o.stageComplete(session.ID, 5, map[string]interface{}{
		"papers_ranked": len(ranked),
		"top_10":        top10,
	})
	return ranked, nil
}

// synthesisStage builds the narrative report. Summarization failures degrade
// to the templated insights paragraph; they never fail the stage.
func (o *Orchestrator) synthesisStage(
	ctx context.Context,
	session *domain.Session,
	papers []*domain.Paper,
	themes map[string][]*domain.Paper,
	methodologies map[string][]*domain.Paper,
) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StageExecutionError{Stage: 6, Cause: err}
	}
	o.stageUpdate(session.ID, 6, 10, "Generating synthesis report...")
	o.stageUpdate(session.ID, 6, 30, "Analyzing thematic clusters...")
	o.stageUpdate(session.ID, 6, 60, "Analyzing methodologies...")
	o.stageUpdate(session.ID, 6, 80, "Generating AI insights...")

	insights := ""
	if input := insightsInput(papers); input != "" {
		summary, err := o.models.Summarize(ctx, input, insightsSummaryMaxLength)
		if err != nil {
			stageLogger := observability.WithStageContext(o.logger, session.ID, 6, domain.StageName(6))
			stageLogger.Warn().Err(err).Msg("insights summarization failed, using templated insights")
		} else {
			insights = summary
		}
	}

	synthesis := buildSynthesis(session.Keywords, papers, themes, methodologies, insights)
	report := buildReport(session.Keywords, papers, themes, methodologies, synthesis)

	o.stageComplete(session.ID, 6, map[string]interface{}{
		"report_generated": true,
		"sections":         5,
		"total_length":     len(synthesis),
	})
	return report, nil
}

// renderStage writes the report artifact through the renderer.
func (o *Orchestrator) renderStage(ctx context.Context, session *domain.Session, report *domain.Report) (string, error) {
	o.stageUpdate(session.ID, 7, 50, "Rendering review artifact...")

	path, err := o.renderer.Render(ctx, session.ID, report)
	if err != nil {
		return "", &domain.StageExecutionError{Stage: 7, Cause: err}
	}

	o.stageComplete(session.ID, 7, map[string]interface{}{
		"artifact_path": path,
	})
	return path, nil
}

// embedPapers embeds each paper's title-plus-abstract text.
func (o *Orchestrator) embedPapers(ctx context.Context, papers []*domain.Paper) ([][]float32, error) {
	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = p.EmbeddingText()
	}
	return o.models.Embed(ctx, texts)
}

// paperPreviews returns lightweight previews of the first n papers.
func paperPreviews(papers []*domain.Paper, n int) []map[string]interface{} {
	if len(papers) < n {
		n = len(papers)
	}
	previews := make([]map[string]interface{}, 0, n)
	for _, p := range papers[:n] {
		previews = append(previews, map[string]interface{}{
			"paper_id":       p.PaperID,
			"title":          p.Title,
			"year":           p.Year,
			"citation_count": p.CitationCount,
		})
	}
	return previews
}

func (o *Orchestrator) publish(sessionID string, event domain.Event) {
	o.broadcaster.Publish(sessionID, event)
}

func (o *Orchestrator) stageStart(sessionID string, stage int) {
	o.publish(sessionID, domain.Event{
		Type:    domain.EventStageStart,
		Stage:   stage,
		Message: fmt.Sprintf("Starting %s", domain.StageName(stage)),
	})
}

func (o *Orchestrator) stageUpdate(sessionID string, stage, progress int, message string) {
	o.publish(sessionID, domain.Event{
		Type:     domain.EventStageUpdate,
		Stage:    stage,
		Progress: progress,
		Message:  message,
	})
}

func (o *Orchestrator) stageComplete(sessionID string, stage int, result map[string]interface{}) {
	o.publish(sessionID, domain.Event{
		Type:     domain.EventStageComplete,
		Stage:    stage,
		Progress: 100,
		Result:   result,
	})
}
