// Package store keeps the rolling in-memory window of liquidation events and
// derives the windowed aggregates served by the API.
package store

import (
	"sync"
	"time"

	"github.com/liqwatch/liqhub/internal/domain"
)

// DefaultRetention is the sliding horizon beyond which events are evicted.
const DefaultRetention = 48 * time.Hour

// DefaultLatestLimit is the list size served by /latest_liquidations.
const DefaultLatestLimit = 50

// EventStore is a time-ordered rolling buffer of events. A single mutex
// protects append, eviction and read snapshots; readers copy out under the
// lock and compute outside it.
type EventStore struct {
	retention time.Duration

	mu       sync.Mutex
	events   []domain.Event
	nextSeq  uint64
	lastSeen map[domain.Exchange]time.Time
}

// New creates a store with the given retention horizon.
func New(retention time.Duration) *EventStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &EventStore{
		retention: retention,
		nextSeq:   1,
		lastSeen:  make(map[domain.Exchange]time.Time),
	}
}

// Append inserts the event at the tail, assigns its sequence number and
// evicts events older than the newest timestamp minus retention. The stored
// event, sequence included, is returned.
func (s *EventStore) Append(e domain.Event) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Seq = s.nextSeq
	s.nextSeq++
	s.events = append(s.events, e)
	if e.Time.After(s.lastSeen[e.Exchange]) {
		s.lastSeen[e.Exchange] = e.Time
	}
	s.evictBefore(e.Time.Add(-s.retention))
	return e
}

// Prune evicts events older than now minus retention. The periodic pruner
// calls this so the window keeps sliding while feeds are quiet.
func (s *EventStore) Prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictBefore(now.Add(-s.retention))
}

// evictBefore drops head events with a timestamp strictly before threshold.
// Callers hold s.mu.
func (s *EventStore) evictBefore(threshold time.Time) {
	i := 0
	for i < len(s.events) && s.events[i].Time.Before(threshold) {
		i++
	}
	if i > 0 {
		s.events = append(s.events[:0:0], s.events[i:]...)
	}
}

// Len returns the number of resident events.
func (s *EventStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// LastSeq returns the sequence number of the newest appended event (0 when
// nothing has been appended yet).
func (s *EventStore) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq - 1
}

// ListLatest returns the last n events in insertion order, oldest first.
func (s *EventStore) ListLatest(n int) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]domain.Event, n)
	copy(out, s.events[len(s.events)-n:])
	return out
}

// EventsSince returns every event with a sequence number greater than seq,
// in insertion order. This is the SSE cursor: unlike a timestamp cursor it
// cannot skip events that share a second.
func (s *EventStore) EventsSince(seq uint64) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Resident events are seq-ordered; find the first one past the cursor.
	i := len(s.events)
	for i > 0 && s.events[i-1].Seq > seq {
		i--
	}
	out := make([]domain.Event, len(s.events)-i)
	copy(out, s.events[i:])
	return out
}

// Query returns matching events, oldest first, truncated to the last Limit
// entries when the filter sets one.
func (s *EventStore) Query(f domain.QueryFilter) []domain.Event {
	s.mu.Lock()
	matched := make([]domain.Event, 0)
	for _, e := range s.events {
		if f.Match(e) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[len(matched)-f.Limit:]
	}
	return matched
}

// LastSeen reports the newest event timestamp per exchange. Exchanges never
// seen are absent from the map.
func (s *EventStore) LastSeen() map[domain.Exchange]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.Exchange]time.Time, len(s.lastSeen))
	for ex, ts := range s.lastSeen {
		out[ex] = ts
	}
	return out
}

// snapshot copies the resident events out under the lock.
func (s *EventStore) snapshot() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}
