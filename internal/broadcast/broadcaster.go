// Package broadcast provides per-session publish/subscribe fan-out of
// pipeline events plus a bounded in-memory event journal.
//
// Multiple subscriptions per session are supported. Publish appends to the
// journal first, then attempts delivery to every live subscription for the
// session; a subscription whose delivery fails is pruned on the spot. For a
// fixed session, events reach each subscriber in publish order. A late
// subscriber only receives live events but can reconstruct history through
// RecentEvents.
package broadcast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/litreview/litreview-service/internal/domain"
	"github.com/litreview/litreview-service/internal/observability"
)

const (
	// DefaultJournalCapacity is the default bound on journaled events.
	// Oldest events are evicted once the bound is exceeded.
	DefaultJournalCapacity = 1000

	// subscriptionBuffer is the per-subscription channel depth. A publish
	// attempt that finds the buffer full counts as a failed delivery and
	// removes the subscription rather than blocking the pipeline.
	subscriptionBuffer = 100
)

// Subscription is a live event stream for one session.
type Subscription struct {
	sessionID string
	ch        chan domain.Event
	b         *Broadcaster
	closeOnce sync.Once
}

// Events returns the channel live events are delivered on. The channel is
// closed when the subscription is closed or pruned.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// SessionID returns the session this subscription observes.
func (s *Subscription) SessionID() string {
	return s.sessionID
}

// Close removes the subscription from the broadcaster and closes its channel.
// Safe to call multiple times and concurrently with Publish.
func (s *Subscription) Close() {
	s.b.remove(s)
}

// Broadcaster fans events out to per-session subscribers and keeps a bounded
// append-only journal. It is safe for concurrent use.
type Broadcaster struct {
	mu       sync.Mutex
	journal  []domain.Event
	capacity int
	seq      uint64
	subs     map[string]map[*Subscription]struct{}
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates a Broadcaster with the given journal capacity.
// A capacity of 0 or less uses DefaultJournalCapacity. metrics may be nil.
func New(capacity int, logger zerolog.Logger, metrics *observability.Metrics) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &Broadcaster{
		capacity: capacity,
		subs:     make(map[string]map[*Subscription]struct{}),
		logger:   logger.With().Str("component", "broadcaster").Logger(),
		metrics:  metrics,
	}
}

// Subscribe registers a new subscription for the session and publishes a
// connected event so the subscriber (and any other viewers of the session)
// sees the stream open.
func (b *Broadcaster) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		sessionID: sessionID,
		ch:        make(chan domain.Event, subscriptionBuffer),
		b:         b,
	}

	b.mu.Lock()
	set, ok := b.subs[sessionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[sessionID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.RecordSubscriberAdded()
	}

	b.Publish(sessionID, domain.Event{
		Type:    domain.EventConnected,
		Message: "Pipeline session stream connected",
	})

	return sub
}

// Publish journals the event and attempts delivery to every live
// subscription for the session. SessionID, Sequence, and Timestamp are
// assigned here; the caller fills the remaining fields. Delivery never
// blocks: a subscriber whose buffer is full or whose channel is gone is
// removed from the active set, with no error surfaced to the publisher.
func (b *Broadcaster) Publish(sessionID string, event domain.Event) {
	b.mu.Lock()

	b.seq++
	event.SessionID = sessionID
	event.Sequence = b.seq
	event.Timestamp = time.Now().UTC()

	b.journal = append(b.journal, event)
	if len(b.journal) > b.capacity {
		b.journal = b.journal[len(b.journal)-b.capacity:]
	}

	var dead []*Subscription
	for sub := range b.subs[sessionID] {
		select {
		case sub.ch <- event:
		default:
			dead = append(dead, sub)
		}
	}
	for _, sub := range dead {
		b.removeLocked(sub)
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.RecordEventPublished()
		for range dead {
			b.metrics.RecordEventDropped()
		}
	}
	if len(dead) > 0 {
		b.logger.Warn().
			Str("session_id", sessionID).
			Int("pruned", len(dead)).
			Msg("pruned unresponsive event subscribers")
	}
}

// RecentEvents returns up to limit journaled events, newest last. An empty
// sessionID matches all sessions. A limit of 0 or less returns the full
// matching history still held in the journal.
func (b *Broadcaster) RecentEvents(sessionID string, limit int) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var events []domain.Event
	if sessionID == "" {
		events = append(events, b.journal...)
	} else {
		for _, ev := range b.journal {
			if ev.SessionID == sessionID {
				events = append(events, ev)
			}
		}
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}

// SubscriberCount returns the number of live subscriptions for a session.
func (b *Broadcaster) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// remove unregisters a subscription and closes its channel exactly once.
func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	b.removeLocked(sub)
	b.mu.Unlock()
}

func (b *Broadcaster) removeLocked(sub *Subscription) {
	set, ok := b.subs[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.sessionID)
	}
	sub.closeOnce.Do(func() { close(sub.ch) })
	if b.metrics != nil {
		b.metrics.RecordSubscriberRemoved()
	}
}
