package pipeline

import (
	"fmt"
	"sync"

	"github.com/litreview/litreview-service/internal/domain"
)

// Registry tracks pipeline sessions by ID. All lifecycle transitions go
// through the registry so state changes are serialized: created -> running
// exactly once, then exactly one of completed or failed. Terminal sessions
// are immutable. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*domain.Session)}
}

// Add registers a session. The session is owned by the registry afterwards;
// callers mutate it only through registry methods.
func (r *Registry) Add(session *domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

// Get returns a snapshot of the session, or domain.ErrNotFound. The snapshot
// is safe to read while the pipeline keeps running; Result and Error are set
// once and never mutated afterwards.
func (r *Registry) Get(sessionID string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %q: %w", sessionID, domain.ErrNotFound)
	}
	return *session, nil
}

// MarkRunning transitions a session from created to running.
func (r *Registry) MarkRunning(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, domain.ErrNotFound)
	}
	if session.State != domain.SessionCreated {
		return fmt.Errorf("session %q: cannot run from state %s: %w", sessionID, session.State, domain.ErrInvalidInput)
	}
	session.State = domain.SessionRunning
	return nil
}

// Complete transitions a running session to completed with its result.
func (r *Registry) Complete(sessionID string, result *domain.SessionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, domain.ErrNotFound)
	}
	if session.State.IsTerminal() {
		return fmt.Errorf("session %q: already %s: %w", sessionID, session.State, domain.ErrInvalidInput)
	}
	session.State = domain.SessionCompleted
	session.Result = result
	return nil
}

// Fail transitions a non-terminal session to failed with the captured error.
func (r *Registry) Fail(sessionID string, sessionErr *domain.SessionError) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q: %w", sessionID, domain.ErrNotFound)
	}
	if session.State.IsTerminal() {
		return fmt.Errorf("session %q: already %s: %w", sessionID, session.State, domain.ErrInvalidInput)
	}
	session.State = domain.SessionFailed
	session.Error = sessionErr
	return nil
}

// Count returns the number of tracked sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clear removes all sessions. Intended for operational reset and tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*domain.Session)
}
