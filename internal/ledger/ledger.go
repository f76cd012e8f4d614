package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/decoy/internal/intel"
)

// DefaultEscalationTurns is the turn count at which a session escalates
// even without critical intelligence.
const DefaultEscalationTurns = 5

// Snapshot is the accumulated state of one session as exposed to
// callers. Entity slices are copies; mutating them does not touch the
// stored record.
type Snapshot struct {
	SessionID        string
	Entities         map[intel.Kind][]string
	TurnCount        int
	LocationSeen     bool
	HasCriticalIntel bool
	ShouldEscalate   bool
	Reported         bool
}

// Store owns per-session accumulated intelligence.
//
// Implementations must serialize the read-or-create, merge, increment,
// escalate sequence per session: entity sets only grow and the turn
// count equals the number of Ingest calls for that session.
type Store interface {
	// Ingest merges the entities extracted from one inbound message
	// into the session record, creating it on first sight, and returns
	// the resulting snapshot.
	Ingest(ctx context.Context, sessionID, text string) (Snapshot, error)

	// Snapshot returns the current state without mutating anything.
	// The second result is false for an unknown session.
	Snapshot(ctx context.Context, sessionID string) (Snapshot, bool, error)

	// MarkReported flips the session's reported flag and returns true
	// only on the false to true transition, so callers can gate
	// one-shot report delivery.
	MarkReported(ctx context.Context, sessionID string) (bool, error)
}

// StoreType selects a ledger backend.
type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)

// Options configures a ledger store.
type Options struct {
	// EscalationTurns is the turn threshold for escalation without
	// critical intel. Zero means DefaultEscalationTurns.
	EscalationTurns int
	// Redis is required for the redis backend.
	Redis *redis.Client
}

func (o Options) escalationTurns() int {
	if o.EscalationTurns <= 0 {
		return DefaultEscalationTurns
	}
	return o.EscalationTurns
}

// NewStore builds a ledger store for the given backend type.
func NewStore(storeType StoreType, opts Options) (Store, error) {
	switch storeType {
	case InMemoryStore, "":
		return NewInMemory(opts), nil
	case RedisStore:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis ledger store requires a client")
		}
		return NewRedis(opts), nil
	default:
		return nil, fmt.Errorf("unsupported ledger store type: %s", storeType)
	}
}

func escalate(sets map[intel.Kind][]string, turnCount, threshold int) (critical, should bool) {
	critical = len(sets[intel.KindPaymentID]) > 0 || len(sets[intel.KindBankAccount]) > 0
	return critical, turnCount >= threshold || critical
}
