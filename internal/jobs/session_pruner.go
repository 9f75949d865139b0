package jobs

import (
	"context"
	"log"
	"time"
)

// IdleSessionStore is the pruning surface of the in-memory session
// store. The Redis store expires sessions with TTLs instead and does
// not need a pruner.
type IdleSessionStore interface {
	PruneIdle(cutoff time.Time) int
}

// SessionPruner evicts sessions that have been idle longer than the
// configured TTL.
type SessionPruner struct {
	store   IdleSessionStore
	idleTTL time.Duration
	now     func() time.Time
}

// NewSessionPruner creates a new SessionPruner instance
func NewSessionPruner(store IdleSessionStore, idleTTL time.Duration) *SessionPruner {
	return &SessionPruner{
		store:   store,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Run removes sessions idle past the TTL
func (p *SessionPruner) Run(ctx context.Context) error {
	cutoff := p.now().UTC().Add(-p.idleTTL)
	if pruned := p.store.PruneIdle(cutoff); pruned > 0 {
		log.Printf("session pruner: removed %d idle sessions", pruned)
	}
	return nil
}
