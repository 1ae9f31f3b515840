package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/litreview/litreview-service/internal/domain"
)

// startPipelineResponse is the JSON response for POST /api/pipeline/start.
type startPipelineResponse struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	WebsocketURL string `json:"websocket_url"`
}

// statusResponse is the JSON response for GET /api/pipeline/status/{sessionID}.
type statusResponse struct {
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	Error     *errorDetail    `json:"error,omitempty"`
	Result    *resultResponse `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// errorDetail carries a captured pipeline failure.
type errorDetail struct {
	Message string `json:"message"`
	Stage   int    `json:"stage,omitempty"`
}

// resultResponse is the JSON shape of a completed pipeline result.
type resultResponse struct {
	SessionID     string         `json:"session_id"`
	Report        *domain.Report `json:"report"`
	ArtifactPath  string         `json:"artifact_path,omitempty"`
	TotalDuration string         `json:"total_duration"`
}

// eventsResponse is the JSON response for GET /api/monitoring/events.
type eventsResponse struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

// sessionToStatusResponse maps a session snapshot to its API shape.
func sessionToStatusResponse(session domain.Session) statusResponse {
	resp := statusResponse{
		SessionID: session.ID,
		Status:    string(session.State),
		CreatedAt: session.CreatedAt,
	}
	if session.Error != nil {
		resp.Error = &errorDetail{Message: session.Error.Message, Stage: session.Error.Stage}
	}
	if session.Result != nil {
		result := sessionToResultResponse(session)
		resp.Result = &result
	}
	return resp
}

// sessionToResultResponse maps a completed session to its result shape.
func sessionToResultResponse(session domain.Session) resultResponse {
	return resultResponse{
		SessionID:     session.ID,
		Report:        session.Result.Report,
		ArtifactPath:  session.Result.ArtifactPath,
		TotalDuration: session.Result.TotalDuration.String(),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
