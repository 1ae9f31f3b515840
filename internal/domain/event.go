package domain

import "time"

// EventType identifies the kind of pipeline event.
type EventType string

// Event types emitted over the lifetime of a pipeline session.
const (
	EventConnected        EventType = "connected"
	EventStageStart       EventType = "stage_start"
	EventStageUpdate      EventType = "stage_update"
	EventStageComplete    EventType = "stage_complete"
	EventStageError       EventType = "stage_error"
	EventPipelineComplete EventType = "pipeline_complete"
	EventPipelineError    EventType = "pipeline_error"
)

// Event is an immutable, ordered notification describing pipeline progress.
// Events are append-only; the journal evicts the oldest once capacity is
// exceeded but never mutates entries.
type Event struct {
	// SessionID identifies the session this event belongs to.
	SessionID string `json:"session_id"`

	// Sequence is the journal-assigned, monotonically increasing ordinal.
	Sequence uint64 `json:"sequence"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event kind.
	Type EventType `json:"type"`

	// Stage is the 1-7 stage index, 0 for pipeline-level events.
	Stage int `json:"stage,omitempty"`

	// Progress is the 0-100 completion of the current stage. Within a stage
	// it is non-decreasing across stage_update events.
	Progress int `json:"progress,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty"`

	// Data carries optional structured payload for progress events.
	Data map[string]interface{} `json:"data,omitempty"`

	// Result carries the structured payload of a completion event.
	Result map[string]interface{} `json:"result,omitempty"`
}

// Stage names, indexed 1-7. Used for event messages and logging.
var stageNames = map[int]string{
	1: "fetch",
	2: "relevance",
	3: "themes",
	4: "methodology",
	5: "ranking",
	6: "synthesis",
	7: "render",
}

// StageName returns the short name of a stage index, or "unknown".
func StageName(stage int) string {
	if name, ok := stageNames[stage]; ok {
		return name
	}
	return "unknown"
}

// StageCount is the number of pipeline stages.
const StageCount = 7
