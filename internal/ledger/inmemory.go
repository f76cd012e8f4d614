package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/mohammad-safakhou/decoy/internal/intel"
)

type memoryStore struct {
	opts     Options
	mu       sync.RWMutex
	sessions map[string]*record
}

type record struct {
	mu           sync.Mutex
	sets         map[intel.Kind]map[string]struct{}
	turnCount    int
	locationSeen bool
	reported     bool
}

// NewInMemory returns a process-local ledger store. Records live for
// the lifetime of the process; there is no eviction.
func NewInMemory(opts Options) Store {
	return &memoryStore{opts: opts, sessions: make(map[string]*record)}
}

func (s *memoryStore) ensure(sessionID string) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		rec = &record{sets: make(map[intel.Kind]map[string]struct{}, len(intel.Kinds))}
		for _, kind := range intel.Kinds {
			rec.sets[kind] = make(map[string]struct{})
		}
		s.sessions[sessionID] = rec
	}
	return rec
}

func (s *memoryStore) Ingest(_ context.Context, sessionID, text string) (Snapshot, error) {
	rec := s.ensure(sessionID)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	batch := intel.Extract(text)
	for kind, matches := range batch {
		for _, m := range matches {
			rec.sets[kind][m] = struct{}{}
		}
	}
	rec.turnCount++
	if intel.HasLocationSignal(text) {
		rec.locationSeen = true
	}
	return s.snapshotLocked(sessionID, rec), nil
}

func (s *memoryStore) Snapshot(_ context.Context, sessionID string) (Snapshot, bool, error) {
	s.mu.RLock()
	rec, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return s.snapshotLocked(sessionID, rec), true, nil
}

func (s *memoryStore) MarkReported(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	rec, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.reported {
		return false, nil
	}
	rec.reported = true
	return true, nil
}

// snapshotLocked copies the record into a Snapshot. Callers hold rec.mu.
func (s *memoryStore) snapshotLocked(sessionID string, rec *record) Snapshot {
	entities := make(map[intel.Kind][]string, len(intel.Kinds))
	for _, kind := range intel.Kinds {
		vals := make([]string, 0, len(rec.sets[kind]))
		for v := range rec.sets[kind] {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		entities[kind] = vals
	}
	critical, should := escalate(entities, rec.turnCount, s.opts.escalationTurns())
	return Snapshot{
		SessionID:        sessionID,
		Entities:         entities,
		TurnCount:        rec.turnCount,
		LocationSeen:     rec.locationSeen,
		HasCriticalIntel: critical,
		ShouldEscalate:   should,
		Reported:         rec.reported,
	}
}
