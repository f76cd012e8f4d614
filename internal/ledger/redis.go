package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/decoy/internal/intel"
)

type redisStore struct {
	opts   Options
	client *redis.Client
	// mu serializes the read-modify-write cycle within this process.
	// Cross-process consistency is out of scope.
	mu sync.Mutex
}

type redisRecord struct {
	Entities     map[intel.Kind][]string `json:"entities"`
	TurnCount    int                     `json:"turn_count"`
	LocationSeen bool                    `json:"location_seen"`
	Reported     bool                    `json:"reported"`
}

// NewRedis returns a ledger store backed by redis, one JSON record per
// session key. It shares the Store contract with the in-memory backend
// so the serving layer does not care which one it got.
func NewRedis(opts Options) Store {
	return &redisStore{opts: opts, client: opts.Redis}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("decoy:session:%s", sessionID)
}

func (s *redisStore) load(ctx context.Context, sessionID string) (redisRecord, bool, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return redisRecord{Entities: make(map[intel.Kind][]string)}, false, nil
	}
	if err != nil {
		return redisRecord{}, false, fmt.Errorf("ledger redis get: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return redisRecord{}, false, fmt.Errorf("ledger redis decode: %w", err)
	}
	if rec.Entities == nil {
		rec.Entities = make(map[intel.Kind][]string)
	}
	return rec, true, nil
}

func (s *redisStore) save(ctx context.Context, sessionID string, rec redisRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("ledger redis encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("ledger redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Ingest(ctx context.Context, sessionID, text string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	batch := intel.Extract(text)
	for kind, matches := range batch {
		rec.Entities[kind] = mergeSorted(rec.Entities[kind], matches)
	}
	rec.TurnCount++
	if intel.HasLocationSignal(text) {
		rec.LocationSeen = true
	}
	if err := s.save(ctx, sessionID, rec); err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(sessionID, rec), nil
}

func (s *redisStore) Snapshot(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	rec, found, err := s.load(ctx, sessionID)
	if err != nil || !found {
		return Snapshot{}, false, err
	}
	return s.snapshot(sessionID, rec), true, nil
}

func (s *redisStore) MarkReported(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found, err := s.load(ctx, sessionID)
	if err != nil || !found {
		return false, err
	}
	if rec.Reported {
		return false, nil
	}
	rec.Reported = true
	if err := s.save(ctx, sessionID, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisStore) snapshot(sessionID string, rec redisRecord) Snapshot {
	entities := make(map[intel.Kind][]string, len(intel.Kinds))
	for _, kind := range intel.Kinds {
		entities[kind] = append([]string(nil), rec.Entities[kind]...)
	}
	critical, should := escalate(entities, rec.TurnCount, s.opts.escalationTurns())
	return Snapshot{
		SessionID:        sessionID,
		Entities:         entities,
		TurnCount:        rec.TurnCount,
		LocationSeen:     rec.LocationSeen,
		HasCriticalIntel: critical,
		ShouldEscalate:   should,
		Reported:         rec.Reported,
	}
}

// mergeSorted unions new matches into an already sorted, deduplicated
// slice and keeps it sorted.
func mergeSorted(existing, matches []string) []string {
	if len(matches) == 0 {
		if existing == nil {
			return []string{}
		}
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(matches))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range matches {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
