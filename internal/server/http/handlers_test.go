package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/litreview-service/internal/broadcast"
	"github.com/litreview/litreview-service/internal/domain"
	"github.com/litreview/litreview-service/internal/papersource"
	"github.com/litreview/litreview-service/internal/pipeline"
)

// stubSource returns a fixed set of papers for every search.
type stubSource struct {
	papers []*domain.Paper
	err    error
}

func (s *stubSource) Search(ctx context.Context, params papersource.SearchParams) (*papersource.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &papersource.SearchResult{
		Papers:       s.papers,
		TotalResults: len(s.papers),
		Source:       s.Name(),
	}, nil
}

func (s *stubSource) Name() string { return "stub" }

// stubModels produces deterministic embeddings and a canned summary.
type stubModels struct{}

func (stubModels) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		var vec [4]float32
		for j, r := range text {
			vec[j%4] += float32(r%13) / 13
		}
		vectors[i] = vec[:]
	}
	return vectors, nil
}

func (stubModels) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	return "The reviewed literature converges on a small set of themes.", nil
}

// stubRenderer records the report without touching the filesystem.
type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, sessionID string, report *domain.Report) (string, error) {
	return "output/review_" + sessionID + ".md", nil
}

type testEnv struct {
	server      *Server
	registry    *pipeline.Registry
	broadcaster *broadcast.Broadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	registry := pipeline.NewRegistry()
	broadcaster := broadcast.New(0, logger, nil)

	papers := make([]*domain.Paper, 0, 6)
	for i := 0; i < 6; i++ {
		papers = append(papers, &domain.Paper{
			PaperID:       fmt.Sprintf("paper-%d", i),
			Title:         fmt.Sprintf("Quantum error correction study %d", i),
			Abstract:      strings.Repeat(fmt.Sprintf("Surface codes and decoders, part %d. ", i), 4),
			Authors:       []string{"Kitaev", "Preskill"},
			Year:          2015 + i,
			CitationCount: 100 * (i + 1),
		})
	}

	orchestrator := pipeline.NewOrchestrator(
		&stubSource{papers: papers},
		stubModels{},
		broadcaster,
		registry,
		stubRenderer{},
		logger,
		nil,
	)

	server := NewServer(Config{Address: ":0"}, registry, orchestrator, broadcaster, logger)
	return &testEnv{server: server, registry: registry, broadcaster: broadcaster}
}

func postJSON(t *testing.T, handler http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestStartPipeline(t *testing.T) {
	t.Run("valid request starts a session", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.server.Router(), "/api/pipeline/start",
			`{"keywords": ["quantum error correction", "surface codes"], "max_papers": 20}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp startPipelineResponse
		decodeBody(t, rec, &resp)
		assert.NotEmpty(t, resp.SessionID)
		assert.Equal(t, "started", resp.Status)
		assert.Equal(t, "/ws/"+resp.SessionID, resp.WebsocketURL)
		assert.Contains(t, resp.Message, "WebSocket")

		_, err := env.registry.Get(resp.SessionID)
		assert.NoError(t, err)
	})

	t.Run("status probe after start never sees the created state", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.server.Router(), "/api/pipeline/start",
			`{"keywords": ["quantum error correction"]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var started startPipelineResponse
		decodeBody(t, rec, &started)

		statusRec := getPath(t, env.server.Router(), "/api/pipeline/status/"+started.SessionID)
		require.Equal(t, http.StatusOK, statusRec.Code)

		var status statusResponse
		decodeBody(t, statusRec, &status)
		assert.NotEqual(t, "created", status.Status)
		assert.Contains(t, []string{"running", "completed"}, status.Status)
	})

	t.Run("session reaches completion", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.server.Router(), "/api/pipeline/start",
			`{"keywords": ["quantum computing"]}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp startPipelineResponse
		decodeBody(t, rec, &resp)

		require.Eventually(t, func() bool {
			session, err := env.registry.Get(resp.SessionID)
			return err == nil && session.State == domain.SessionCompleted
		}, 5*time.Second, 10*time.Millisecond)

		session, err := env.registry.Get(resp.SessionID)
		require.NoError(t, err)
		require.NotNil(t, session.Result)
		assert.NotNil(t, session.Result.Report)
		assert.NotEmpty(t, session.Result.ArtifactPath)
	})

	t.Run("missing keywords rejected", func(t *testing.T) {
		env := newTestEnv(t)

		rec := postJSON(t, env.server.Router(), "/api/pipeline/start", `{"max_papers": 10}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Contains(t, resp["error"], "Keywords")
		assert.Contains(t, resp["error"], "required")
	})

	t.Run("empty keyword list rejected", func(t *testing.T) {
		env := newTestEnv(t)
		rec := postJSON(t, env.server.Router(), "/api/pipeline/start", `{"keywords": []}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too many keywords rejected", func(t *testing.T) {
		env := newTestEnv(t)

		keywords := make([]string, 11)
		for i := range keywords {
			keywords[i] = fmt.Sprintf("keyword-%d", i)
		}
		body, err := json.Marshal(map[string]interface{}{"keywords": keywords})
		require.NoError(t, err)

		rec := postJSON(t, env.server.Router(), "/api/pipeline/start", string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("single-character keyword rejected", func(t *testing.T) {
		env := newTestEnv(t)
		rec := postJSON(t, env.server.Router(), "/api/pipeline/start", `{"keywords": ["q"]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("max_papers over limit rejected", func(t *testing.T) {
		env := newTestEnv(t)
		rec := postJSON(t, env.server.Router(), "/api/pipeline/start",
			`{"keywords": ["quantum"], "max_papers": 500}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed JSON rejected", func(t *testing.T) {
		env := newTestEnv(t)
		rec := postJSON(t, env.server.Router(), "/api/pipeline/start", `{"keywords": [`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Contains(t, resp["error"], "invalid JSON")
	})
}

func TestGetPipelineStatus(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		rec := getPath(t, env.server.Router(), "/api/pipeline/status/no-such-session")
		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "Pipeline session not found", resp["error"])
	})

	t.Run("created session", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)

		rec := getPath(t, env.server.Router(), "/api/pipeline/status/"+session.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp statusResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, session.ID, resp.SessionID)
		assert.Equal(t, "created", resp.Status)
		assert.Nil(t, resp.Error)
		assert.Nil(t, resp.Result)
	})

	t.Run("failed session carries error detail", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)
		require.NoError(t, env.registry.MarkRunning(session.ID))
		require.NoError(t, env.registry.Fail(session.ID, &domain.SessionError{
			Message: "No papers found for the given keywords",
			Stage:   1,
		}))

		rec := getPath(t, env.server.Router(), "/api/pipeline/status/"+session.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp statusResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "failed", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "No papers found for the given keywords", resp.Error.Message)
		assert.Equal(t, 1, resp.Error.Stage)
	})

	t.Run("completed session embeds result", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)
		require.NoError(t, env.registry.MarkRunning(session.ID))
		require.NoError(t, env.registry.Complete(session.ID, &domain.SessionResult{
			Report:        &domain.Report{Query: "quantum", TotalPapers: 3},
			ArtifactPath:  "output/review_x.md",
			TotalDuration: 2 * time.Second,
		}))

		rec := getPath(t, env.server.Router(), "/api/pipeline/status/"+session.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp statusResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, "completed", resp.Status)
		require.NotNil(t, resp.Result)
		assert.Equal(t, 3, resp.Result.Report.TotalPapers)
	})
}

func TestGetPipelineResult(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		rec := getPath(t, env.server.Router(), "/api/pipeline/result/no-such-session")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("running session answers too early", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)
		require.NoError(t, env.registry.MarkRunning(session.ID))

		rec := getPath(t, env.server.Router(), "/api/pipeline/result/"+session.ID)
		require.Equal(t, http.StatusTooEarly, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "Pipeline is still running", resp["error"])
	})

	t.Run("created session answers too early", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)

		rec := getPath(t, env.server.Router(), "/api/pipeline/result/"+session.ID)
		assert.Equal(t, http.StatusTooEarly, rec.Code)
	})

	t.Run("failed session surfaces the captured message", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)
		require.NoError(t, env.registry.MarkRunning(session.ID))
		require.NoError(t, env.registry.Fail(session.ID, &domain.SessionError{
			Message: "No papers found for the given keywords",
			Stage:   1,
		}))

		rec := getPath(t, env.server.Router(), "/api/pipeline/result/"+session.ID)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "No papers found for the given keywords", resp["error"])
	})

	t.Run("completed session returns the report", func(t *testing.T) {
		env := newTestEnv(t)
		session := domain.NewSession([]string{"quantum"}, 10)
		env.registry.Add(session)
		require.NoError(t, env.registry.MarkRunning(session.ID))
		require.NoError(t, env.registry.Complete(session.ID, &domain.SessionResult{
			Report:        &domain.Report{Query: "quantum", TotalPapers: 5},
			ArtifactPath:  "output/review_y.md",
			TotalDuration: 1500 * time.Millisecond,
		}))

		rec := getPath(t, env.server.Router(), "/api/pipeline/result/"+session.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp resultResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, session.ID, resp.SessionID)
		require.NotNil(t, resp.Report)
		assert.Equal(t, 5, resp.Report.TotalPapers)
		assert.Equal(t, "output/review_y.md", resp.ArtifactPath)
		assert.Equal(t, "1.5s", resp.TotalDuration)
	})
}

func TestGetEvents(t *testing.T) {
	t.Run("filters by session and applies limit", func(t *testing.T) {
		env := newTestEnv(t)
		for i := 0; i < 5; i++ {
			env.broadcaster.Publish("session-a", domain.Event{
				Type:    domain.EventStageUpdate,
				Message: fmt.Sprintf("update %d", i),
			})
		}
		env.broadcaster.Publish("session-b", domain.Event{
			Type:    domain.EventStageStart,
			Message: "other session",
		})

		rec := getPath(t, env.server.Router(), "/api/monitoring/events?session_id=session-a&limit=3")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp eventsResponse
		decodeBody(t, rec, &resp)
		require.Equal(t, 3, resp.Count)
		require.Len(t, resp.Events, 3)
		// Newest last, limit keeps the tail.
		assert.Equal(t, "update 2", resp.Events[0].Message)
		assert.Equal(t, "update 4", resp.Events[2].Message)
		for _, ev := range resp.Events {
			assert.Equal(t, "session-a", ev.SessionID)
		}
	})

	t.Run("empty session id returns everything", func(t *testing.T) {
		env := newTestEnv(t)
		env.broadcaster.Publish("a", domain.Event{Type: domain.EventStageStart})
		env.broadcaster.Publish("b", domain.Event{Type: domain.EventStageStart})

		rec := getPath(t, env.server.Router(), "/api/monitoring/events")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp eventsResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("invalid limit rejected", func(t *testing.T) {
		env := newTestEnv(t)
		for _, raw := range []string{"0", "-5", "abc"} {
			rec := getPath(t, env.server.Router(), "/api/monitoring/events?limit="+raw)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
		}
	})
}

func TestHealthAndHeaders(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		env := newTestEnv(t)
		rec := getPath(t, env.server.Router(), "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]string
		decodeBody(t, rec, &resp)
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("correlation ID echoed", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Correlation-ID", "trace-123")
		rec := httptest.NewRecorder()
		env.server.Router().ServeHTTP(rec, req)
		assert.Equal(t, "trace-123", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("correlation ID generated when absent", func(t *testing.T) {
		env := newTestEnv(t)
		rec := getPath(t, env.server.Router(), "/healthz")
		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("API responses are JSON", func(t *testing.T) {
		env := newTestEnv(t)
		rec := getPath(t, env.server.Router(), "/api/monitoring/events")
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}
