package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/litreview/litreview-service/internal/domain"
)

const (
	// maxRequestBodySize bounds request bodies to 1 MB.
	maxRequestBodySize = 1 << 20

	// defaultMaxPapers is the fetch limit applied when the request omits one.
	defaultMaxPapers = 50

	// defaultEventLimit is the journal page size when the query omits one.
	defaultEventLimit = 100
)

// startPipelineRequest is the JSON request body for starting a pipeline.
type startPipelineRequest struct {
	Keywords  []string `json:"keywords" validate:"required,min=1,max=10,dive,required,min=2,max=200"`
	MaxPapers int      `json:"max_papers" validate:"omitempty,min=1,max=100"`
}

// startPipeline handles POST /api/pipeline/start. It creates a session and
// runs the pipeline detached from the request lifetime; progress is observed
// through the WebSocket stream or the status endpoint.
func (s *Server) startPipeline(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req startPipelineRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			field := validationErrs[0]
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid field %s: failed %s validation", field.Field(), field.Tag()))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.MaxPapers == 0 {
		req.MaxPapers = defaultMaxPapers
	}

	session := domain.NewSession(req.Keywords, req.MaxPapers)
	s.registry.Add(session)

	// The session is marked running before the handler returns, so a status
	// probe racing the detached goroutine never observes the created state.
	if err := s.registry.MarkRunning(session.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start pipeline")
		return
	}

	// The request context ends with this handler; the run must not.
	go s.orchestrator.Run(context.Background(), session)

	s.logger.Info().Str("session_id", session.ID).Strs("keywords", req.Keywords).
		Msg("pipeline session started")

	writeJSON(w, http.StatusOK, startPipelineResponse{
		SessionID:    session.ID,
		Status:       "started",
		Message:      "Pipeline started successfully. Connect to WebSocket for real-time updates.",
		WebsocketURL: fmt.Sprintf("/ws/%s", session.ID),
	})
}

// getPipelineStatus handles GET /api/pipeline/status/{sessionID}.
func (s *Server) getPipelineStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.registry.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Pipeline session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionToStatusResponse(session))
}

// getPipelineResult handles GET /api/pipeline/result/{sessionID}. A running
// session answers 425, a failed one answers 500 with the captured message.
func (s *Server) getPipelineResult(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.registry.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Pipeline session not found")
		return
	}

	switch session.State {
	case domain.SessionCreated, domain.SessionRunning:
		writeError(w, http.StatusTooEarly, "Pipeline is still running")
	case domain.SessionFailed:
		message := "Pipeline failed"
		if session.Error != nil {
			message = session.Error.Message
		}
		writeError(w, http.StatusInternalServerError, message)
	default:
		writeJSON(w, http.StatusOK, sessionToResultResponse(session))
	}
}

// getEvents handles GET /api/monitoring/events. An empty session_id returns
// events across all sessions; limit keeps the newest N.
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events := s.broadcaster.RecentEvents(sessionID, limit)
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}
