package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the literature pipeline service.
// Metrics are organized by subsystem: pipelines, stages, paper fetching, event
// broadcast, and model calls. All counters and histograms are registered via
// promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// PipelinesStarted counts the total number of pipeline sessions started.
	PipelinesStarted prometheus.Counter

	// PipelinesCompleted counts the sessions that finished successfully.
	PipelinesCompleted prometheus.Counter

	// PipelinesFailed counts the sessions that ended in failure.
	PipelinesFailed prometheus.Counter

	// PipelineDuration observes the end-to-end pipeline duration in seconds.
	PipelineDuration prometheus.Histogram

	// StageDuration observes per-stage duration in seconds, labeled by stage name.
	StageDuration *prometheus.HistogramVec

	// StageFailures counts stage failures, labeled by stage name.
	StageFailures *prometheus.CounterVec

	// PapersFetched counts papers returned by the paper source.
	PapersFetched prometheus.Counter

	// EventsPublished counts events appended to the journal and fanned out.
	EventsPublished prometheus.Counter

	// EventsDropped counts events that could not be delivered to a subscriber.
	EventsDropped prometheus.Counter

	// ActiveSubscribers tracks the number of live event subscriptions.
	ActiveSubscribers prometheus.Gauge

	// ModelRequestsTotal counts model calls, labeled by operation and path
	// (operation: embed|summarize, path: remote|local).
	ModelRequestsTotal *prometheus.CounterVec

	// ModelRequestsFailed counts failed model calls, labeled by operation and path.
	ModelRequestsFailed *prometheus.CounterVec

	// ModelFallbacks counts remote failures recovered by the local path,
	// labeled by operation.
	ModelFallbacks *prometheus.CounterVec

	// ModelRequestDuration observes model call duration in seconds,
	// labeled by operation and path.
	ModelRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PipelinesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipelines_started_total",
			Help:      "Total number of pipeline sessions started",
		}),
		PipelinesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipelines_completed_total",
			Help:      "Total number of pipeline sessions completed successfully",
		}),
		PipelinesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipelines_failed_total",
			Help:      "Total number of pipeline sessions that failed",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end duration of pipeline sessions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Total number of stage failures by stage name",
		}, []string{"stage"}),
		PapersFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Total number of papers returned by the paper source",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published to the broadcaster",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped due to failed subscriber delivery",
		}),
		ActiveSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscribers",
			Help:      "Number of live event stream subscriptions",
		}),
		ModelRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Total number of model calls by operation and path",
		}, []string{"operation", "path"}),
		ModelRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_failed_total",
			Help:      "Total number of failed model calls by operation and path",
		}, []string{"operation", "path"}),
		ModelFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "Total number of remote model failures served by the local path",
		}, []string{"operation"}),
		ModelRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Duration of model calls in seconds by operation and path",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"operation", "path"}),
	}
}

// RecordPipelineStarted records that a pipeline session has started.
func (m *Metrics) RecordPipelineStarted() {
	m.PipelinesStarted.Inc()
}

// RecordPipelineCompleted records a successful pipeline session.
func (m *Metrics) RecordPipelineCompleted(durationSeconds float64) {
	m.PipelinesCompleted.Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordPipelineFailed records a failed pipeline session.
func (m *Metrics) RecordPipelineFailed(durationSeconds float64) {
	m.PipelinesFailed.Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordStageDuration records the duration of a completed stage.
func (m *Metrics) RecordStageDuration(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordStageFailure records a stage failure.
func (m *Metrics) RecordStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordPapersFetched records papers returned by the paper source.
func (m *Metrics) RecordPapersFetched(count int) {
	m.PapersFetched.Add(float64(count))
}

// RecordEventPublished records an event published to the broadcaster.
func (m *Metrics) RecordEventPublished() {
	m.EventsPublished.Inc()
}

// RecordEventDropped records a delivery failure to a subscriber.
func (m *Metrics) RecordEventDropped() {
	m.EventsDropped.Inc()
}

// RecordSubscriberAdded records a new live subscription.
func (m *Metrics) RecordSubscriberAdded() {
	m.ActiveSubscribers.Inc()
}

// RecordSubscriberRemoved records a removed subscription.
func (m *Metrics) RecordSubscriberRemoved() {
	m.ActiveSubscribers.Dec()
}

// RecordModelRequest records a model call.
func (m *Metrics) RecordModelRequest(operation, path string, durationSeconds float64) {
	m.ModelRequestsTotal.WithLabelValues(operation, path).Inc()
	m.ModelRequestDuration.WithLabelValues(operation, path).Observe(durationSeconds)
}

// RecordModelRequestFailed records a failed model call.
func (m *Metrics) RecordModelRequestFailed(operation, path string) {
	m.ModelRequestsFailed.WithLabelValues(operation, path).Inc()
}

// RecordModelFallback records a remote failure recovered by the local path.
func (m *Metrics) RecordModelFallback(operation string) {
	m.ModelFallbacks.WithLabelValues(operation).Inc()
}
