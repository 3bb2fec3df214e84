package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hupe1980/agentarena/challenge"
	"github.com/hupe1980/agentarena/logging"
	"github.com/hupe1980/agentarena/match"
)

const (
	// DefaultMaxLive is the admission ceiling on concurrently live matches.
	DefaultMaxLive = 10

	// DefaultMaxCompleted bounds the in-memory cache of finished matches.
	DefaultMaxCompleted = 50
)

// ErrTooManyLiveMatches is returned when admitting a match would exceed the
// live ceiling.
var ErrTooManyLiveMatches = errors.New("store: too many live matches")

// MatchStoreOptions configures a MatchStore.
type MatchStoreOptions struct {
	Logger       logging.Logger
	MaxLive      int
	MaxCompleted int
}

// MatchStore owns the live match set and the write-through path to the
// Durable backend. Admission is a simple counter: a match is admitted on
// Add and released when Finalize moves it out of the live set.
type MatchStore struct {
	backend Durable
	logger  logging.Logger

	maxLive      int
	maxCompleted int

	mu         sync.RWMutex
	live       map[string]*match.Match
	completed  map[string]match.Snapshot
	challenges map[string]challenge.Challenge
}

// NewMatchStore builds a MatchStore over the given backend.
func NewMatchStore(backend Durable, optFns ...func(*MatchStoreOptions)) *MatchStore {
	opts := MatchStoreOptions{
		Logger:       logging.NewDefaultSlogLogger(),
		MaxLive:      DefaultMaxLive,
		MaxCompleted: DefaultMaxCompleted,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MatchStore{
		backend:      backend,
		logger:       opts.Logger,
		maxLive:      opts.MaxLive,
		maxCompleted: opts.MaxCompleted,
		live:         map[string]*match.Match{},
		completed:    map[string]match.Snapshot{},
		challenges:   map[string]challenge.Challenge{},
	}
}

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) func(*MatchStoreOptions) {
	return func(o *MatchStoreOptions) { o.Logger = l }
}

// WithMaxLive sets the admission ceiling.
func WithMaxLive(n int) func(*MatchStoreOptions) {
	return func(o *MatchStoreOptions) { o.MaxLive = n }
}

// WithMaxCompleted sets the completed cache bound.
func WithMaxCompleted(n int) func(*MatchStoreOptions) {
	return func(o *MatchStoreOptions) { o.MaxCompleted = n }
}

// Add admits a match into the live set. Returns ErrTooManyLiveMatches when
// the ceiling is reached; the caller must not run the match in that case.
func (s *MatchStore) Add(m *match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.live) >= s.maxLive {
		return ErrTooManyLiveMatches
	}
	s.live[m.ID] = m
	if m.Challenge.ID != "" {
		s.challenges[m.Challenge.ID] = m.Challenge
	}
	return nil
}

// GetChallenge returns a cached challenge by id.
func (s *MatchStore) GetChallenge(id string) (challenge.Challenge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	return c, ok
}

// LiveCount returns the number of admitted matches.
func (s *MatchStore) LiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

// Live returns the currently admitted matches.
func (s *MatchStore) Live() []*match.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*match.Match, 0, len(s.live))
	for _, m := range s.live {
		out = append(out, m)
	}
	return out
}

// Finalize removes a terminal match from the live set, caches its snapshot
// and writes it through to the backend. Non-terminal matches are rejected.
func (s *MatchStore) Finalize(ctx context.Context, m *match.Match) error {
	snap := m.Snapshot()
	if !snap.Status.Terminal() {
		return match.ErrInvalidTransition
	}

	s.mu.Lock()
	delete(s.live, m.ID)
	s.completed[snap.ID] = snap
	s.evictLocked(snap.ID)
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(ctx, snap); err != nil {
		s.logger.Error("persist match failed", "match_id", snap.ID, "error", err)
		return err
	}
	return nil
}

// evictLocked drops the oldest completed snapshots beyond the cache bound,
// along with cached challenges no live or cached match still references.
// The just-inserted id is exempt so a read-through of an old match is not
// evicted before it can be served again. Caller holds the write lock.
func (s *MatchStore) evictLocked(justInserted string) {
	if len(s.completed) <= s.maxCompleted {
		return
	}
	snaps := make([]match.Snapshot, 0, len(s.completed))
	for _, snap := range s.completed {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CompletedAt.Before(snaps[j].CompletedAt)
	})
	excess := len(snaps) - s.maxCompleted
	for _, snap := range snaps {
		if excess <= 0 {
			break
		}
		if snap.ID == justInserted {
			continue
		}
		delete(s.completed, snap.ID)
		excess--
	}

	referenced := make(map[string]struct{}, len(s.live)+len(s.completed))
	for _, m := range s.live {
		referenced[m.Challenge.ID] = struct{}{}
	}
	for _, snap := range s.completed {
		referenced[snap.Challenge.ID] = struct{}{}
	}
	for id := range s.challenges {
		if _, ok := referenced[id]; !ok {
			delete(s.challenges, id)
		}
	}
}

// Get returns the current snapshot of a match, checking the live set, then
// the completed cache, then the backend. A hit served from the backend is
// put back into the cache so repeated lookups stay local.
func (s *MatchStore) Get(ctx context.Context, id string) (match.Snapshot, error) {
	s.mu.RLock()
	if m, ok := s.live[id]; ok {
		s.mu.RUnlock()
		return m.Snapshot(), nil
	}
	if snap, ok := s.completed[id]; ok {
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	if s.backend == nil {
		return match.Snapshot{}, ErrNotFound
	}
	snap, err := s.backend.Get(ctx, id)
	if err != nil {
		return match.Snapshot{}, err
	}

	s.mu.Lock()
	s.completed[snap.ID] = snap
	if snap.Challenge.ID != "" {
		s.challenges[snap.Challenge.ID] = snap.Challenge
	}
	s.evictLocked(snap.ID)
	s.mu.Unlock()
	return snap, nil
}

// Recent returns up to limit completed matches, most recent first. The
// cache is consulted first; the backend fills the remainder when the cache
// cannot satisfy the limit.
func (s *MatchStore) Recent(ctx context.Context, limit int) ([]match.Snapshot, error) {
	s.mu.RLock()
	cached := make([]match.Snapshot, 0, len(s.completed))
	for _, snap := range s.completed {
		cached = append(cached, snap)
	}
	s.mu.RUnlock()

	sort.Slice(cached, func(i, j int) bool {
		return cached[i].CompletedAt.After(cached[j].CompletedAt)
	})
	if limit > 0 && len(cached) >= limit {
		return cached[:limit], nil
	}
	if s.backend == nil {
		return cached, nil
	}

	persisted, err := s.backend.Recent(ctx, limit)
	if err != nil {
		s.logger.Warn("backend recent lookup failed", "error", err)
		return cached, nil
	}
	seen := make(map[string]struct{}, len(cached))
	for _, snap := range cached {
		seen[snap.ID] = struct{}{}
	}
	for _, snap := range persisted {
		if _, ok := seen[snap.ID]; !ok {
			cached = append(cached, snap)
		}
	}
	sort.Slice(cached, func(i, j int) bool {
		return cached[i].CompletedAt.After(cached[j].CompletedAt)
	})
	if limit > 0 && len(cached) > limit {
		cached = cached[:limit]
	}
	return cached, nil
}
