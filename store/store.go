// Package store manages match persistence. Live matches stay in memory
// behind an admission ceiling; only terminal snapshots are written through
// to the Durable backend. A bounded cache of recently completed matches
// keeps hot reads off the backend.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hupe1980/agentarena/match"
)

// ErrNotFound is returned when a match id is unknown to both the live set
// and the backend.
var ErrNotFound = errors.New("store: match not found")

// Durable is the persistence backend for terminal match snapshots.
type Durable interface {
	// Save writes or overwrites a snapshot.
	Save(ctx context.Context, snap match.Snapshot) error

	// Get loads a snapshot by id. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (match.Snapshot, error)

	// Recent returns up to limit snapshots, most recently completed first.
	Recent(ctx context.Context, limit int) ([]match.Snapshot, error)
}

// InMemory is a Durable backend held entirely in process memory.
type InMemory struct {
	mu    sync.RWMutex
	snaps map[string]match.Snapshot
}

// NewInMemory returns an empty in-memory backend.
func NewInMemory() *InMemory {
	return &InMemory{snaps: map[string]match.Snapshot{}}
}

// Save implements Durable.
func (s *InMemory) Save(_ context.Context, snap match.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = snap
	return nil
}

// Get implements Durable.
func (s *InMemory) Get(_ context.Context, id string) (match.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[id]
	if !ok {
		return match.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// Recent implements Durable.
func (s *InMemory) Recent(_ context.Context, limit int) ([]match.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]match.Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
