package snapshot

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/lysyi3m/cap-comb/app/alerting"
)

// Snapshot is the latest canonical feed fetched for one source.
type Snapshot struct {
	Source    string                          `json:"source"`
	FetchedAt time.Time                       `json:"fetched_at"`
	Feed      *alerting.Feed[*alerting.Alert] `json:"feed"`
}

// Store keeps one snapshot per source in memory. Each Put replaces the
// previous snapshot of that source.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewStore() *Store {
	return &Store{snapshots: make(map[string]Snapshot)}
}

func (s *Store) Put(source string, feed *alerting.Feed[*alerting.Alert], fetchedAt time.Time) {
	snap := Snapshot{Source: source, FetchedAt: fetchedAt, Feed: cloneFeed(feed)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[source] = snap
}

// Get returns a copy of the source snapshot. Callers may modify it freely.
func (s *Store) Get(source string) (Snapshot, bool) {
	s.mu.RLock()
	snap, ok := s.snapshots[source]
	s.mu.RUnlock()

	if !ok {
		return Snapshot{}, false
	}
	snap.Feed = cloneFeed(snap.Feed)
	return snap, true
}

func (s *Store) Delete(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, source)
}

// Sources returns the names of all sources with a snapshot, sorted.
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// cloneFeed copies the channel map and the alert structs. Nested slices and
// geometries inside an alert are shared; nothing in the service mutates them.
func cloneFeed(feed *alerting.Feed[*alerting.Alert]) *alerting.Feed[*alerting.Alert] {
	if feed == nil {
		return nil
	}

	out := &alerting.Feed[*alerting.Alert]{
		Channel: maps.Clone(feed.Channel),
		Items:   make([]*alerting.Alert, len(feed.Items)),
	}
	for i, alert := range feed.Items {
		if alert == nil {
			continue
		}
		copied := *alert
		out.Items[i] = &copied
	}
	return out
}
