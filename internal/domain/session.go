package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a pipeline session.
type SessionState string

// Session lifecycle states. A session transitions Created -> Running exactly
// once, and then exactly once to Completed or Failed. Terminal states are
// immutable.
const (
	SessionCreated   SessionState = "created"
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
)

// IsTerminal reports whether the state is Completed or Failed.
func (s SessionState) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// SessionResult holds the outcome of a successfully completed session.
type SessionResult struct {
	// Report is the aggregated literature review report.
	Report *Report `json:"report"`

	// ArtifactPath is the filesystem location of the rendered artifact.
	ArtifactPath string `json:"artifact_path,omitempty"`

	// StageDurations maps stage index (1-7) to elapsed wall time.
	StageDurations map[int]time.Duration `json:"stage_durations"`

	// TotalDuration is the end-to-end pipeline duration.
	TotalDuration time.Duration `json:"total_duration"`
}

// SessionError holds the captured failure of a failed session.
type SessionError struct {
	// Message is the failure message, preserved verbatim for clients.
	Message string `json:"message"`

	// Stage is the 1-based index of the failing stage, 0 if unknown.
	Stage int `json:"stage,omitempty"`
}

// Session is one pipeline execution instance.
type Session struct {
	// ID is the opaque session token.
	ID string

	// Keywords is the ordered search query.
	Keywords []string

	// MaxPapers bounds the number of papers fetched.
	MaxPapers int

	// State is the current lifecycle state.
	State SessionState

	// Result is set only when State is Completed.
	Result *SessionResult

	// Error is set only when State is Failed.
	Error *SessionError

	// CreatedAt is when the session was created.
	CreatedAt time.Time
}

// NewSession creates a session in the Created state with a generated ID.
func NewSession(keywords []string, maxPapers int) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Keywords:  append([]string(nil), keywords...),
		MaxPapers: maxPapers,
		State:     SessionCreated,
		CreatedAt: time.Now(),
	}
}
