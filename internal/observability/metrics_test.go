package observability

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_litpipe_new")

	assert.NotNil(t, m.PipelinesStarted)
	assert.NotNil(t, m.PipelinesCompleted)
	assert.NotNil(t, m.PipelinesFailed)
	assert.NotNil(t, m.PipelineDuration)
	assert.NotNil(t, m.StageDuration)
	assert.NotNil(t, m.StageFailures)
	assert.NotNil(t, m.PapersFetched)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.EventsDropped)
	assert.NotNil(t, m.ActiveSubscribers)
	assert.NotNil(t, m.ModelRequestsTotal)
	assert.NotNil(t, m.ModelRequestsFailed)
	assert.NotNil(t, m.ModelFallbacks)
	assert.NotNil(t, m.ModelRequestDuration)
}

func TestRecordPipelineLifecycle(t *testing.T) {
	m := NewMetrics("test_litpipe_lifecycle")

	m.RecordPipelineStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelinesStarted))

	m.RecordPipelineCompleted(2.5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelinesCompleted))

	m.RecordPipelineFailed(0.5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelinesFailed))

	count, err := getHistogramSampleCount(m.PipelineDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRecordStageMetrics(t *testing.T) {
	m := NewMetrics("test_litpipe_stages")

	m.RecordStageDuration("fetch", 1.2)
	m.RecordStageDuration("fetch", 0.8)
	m.RecordStageFailure("relevance")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("relevance")))
}

func TestRecordEventMetrics(t *testing.T) {
	m := NewMetrics("test_litpipe_events")

	m.RecordEventPublished()
	m.RecordEventPublished()
	m.RecordEventDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))

	m.RecordSubscriberAdded()
	m.RecordSubscriberAdded()
	m.RecordSubscriberRemoved()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSubscribers))
}

func TestRecordModelMetrics(t *testing.T) {
	m := NewMetrics("test_litpipe_model")

	m.RecordModelRequest("summarize", "remote", 0.3)
	m.RecordModelRequestFailed("summarize", "remote")
	m.RecordModelFallback("summarize")
	m.RecordModelRequest("summarize", "local", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelRequestsTotal.WithLabelValues("summarize", "remote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelRequestsTotal.WithLabelValues("summarize", "local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelRequestsFailed.WithLabelValues("summarize", "remote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelFallbacks.WithLabelValues("summarize")))
}

// getHistogramSampleCount extracts the sample count from a histogram.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}
	if m == nil {
		return 0, fmt.Errorf("no metric collected")
	}

	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0, err
	}
	if pb.Histogram == nil {
		return 0, fmt.Errorf("metric is not a histogram")
	}
	return pb.Histogram.GetSampleCount(), nil
}
