package store

import (
	"context"
	"testing"

	"github.com/hupe1980/agentarena/challenge"
	"github.com/hupe1980/agentarena/logging"
	"github.com/hupe1980/agentarena/match"
	"github.com/stretchr/testify/assert"
)

func newTestStore(maxLive, maxCompleted int) *MatchStore {
	return NewMatchStore(NewInMemory(),
		WithLogger(logging.NoOpLogger{}),
		WithMaxLive(maxLive),
		WithMaxCompleted(maxCompleted),
	)
}

func newTestMatch() *match.Match {
	return match.New(match.TypeStandardDuel, "a", "b", challenge.Challenge{Prompt: "p"})
}

func finish(t *testing.T, m *match.Match, winner string) {
	t.Helper()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.Complete(winner, match.Scores{SideA: 7, SideB: 4}))
}

func TestAdd_AdmissionCeiling(t *testing.T) {
	s := newTestStore(2, 10)

	m1, m2 := newTestMatch(), newTestMatch()
	assert.NoError(t, s.Add(m1))
	assert.NoError(t, s.Add(m2))
	assert.Equal(t, 2, s.LiveCount())

	// Third admission is rejected at the ceiling.
	assert.ErrorIs(t, s.Add(newTestMatch()), ErrTooManyLiveMatches)

	// Finalizing releases a slot.
	finish(t, m1, "a")
	assert.NoError(t, s.Finalize(context.Background(), m1))
	assert.Equal(t, 1, s.LiveCount())
	assert.NoError(t, s.Add(newTestMatch()))
}

func TestFinalize_RejectsLiveMatch(t *testing.T) {
	s := newTestStore(5, 10)
	m := newTestMatch()
	assert.NoError(t, s.Add(m))
	assert.NoError(t, m.Start())
	assert.ErrorIs(t, s.Finalize(context.Background(), m), match.ErrInvalidTransition)
	assert.Equal(t, 1, s.LiveCount())
}

func TestFinalize_WritesThrough(t *testing.T) {
	backend := NewInMemory()
	s := NewMatchStore(backend, WithLogger(logging.NoOpLogger{}))

	m := newTestMatch()
	assert.NoError(t, s.Add(m))
	finish(t, m, "a")
	assert.NoError(t, s.Finalize(context.Background(), m))

	snap, err := backend.Get(context.Background(), m.ID)
	assert.NoError(t, err)
	assert.Equal(t, match.StatusCompleted, snap.Status)
	assert.Equal(t, "a", snap.Winner)
}

func TestGet_LiveThenCacheThenBackend(t *testing.T) {
	backend := NewInMemory()
	s := NewMatchStore(backend, WithLogger(logging.NoOpLogger{}), WithMaxCompleted(1))

	live := newTestMatch()
	assert.NoError(t, s.Add(live))
	snap, err := s.Get(context.Background(), live.ID)
	assert.NoError(t, err)
	assert.Equal(t, match.StatusPending, snap.Status)

	// Completed matches come from the cache.
	first := newTestMatch()
	assert.NoError(t, s.Add(first))
	finish(t, first, "a")
	assert.NoError(t, s.Finalize(context.Background(), first))
	_, err = s.Get(context.Background(), first.ID)
	assert.NoError(t, err)

	// Evicted matches fall through to the backend.
	second := newTestMatch()
	assert.NoError(t, s.Add(second))
	finish(t, second, "b")
	assert.NoError(t, s.Finalize(context.Background(), second))

	snap, err = s.Get(context.Background(), first.ID)
	assert.NoError(t, err)
	assert.Equal(t, "a", snap.Winner)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// countingBackend wraps a Durable and counts Get calls.
type countingBackend struct {
	Durable
	gets int
}

func (b *countingBackend) Get(ctx context.Context, id string) (match.Snapshot, error) {
	b.gets++
	return b.Durable.Get(ctx, id)
}

func TestGet_BackendHitRepopulatesCache(t *testing.T) {
	backend := &countingBackend{Durable: NewInMemory()}
	s := NewMatchStore(backend, WithLogger(logging.NoOpLogger{}), WithMaxCompleted(1))

	first := newTestMatch()
	assert.NoError(t, s.Add(first))
	finish(t, first, "a")
	assert.NoError(t, s.Finalize(context.Background(), first))

	// Push first out of the completed cache.
	second := newTestMatch()
	assert.NoError(t, s.Add(second))
	finish(t, second, "b")
	assert.NoError(t, s.Finalize(context.Background(), second))

	snap, err := s.Get(context.Background(), second.ID)
	assert.NoError(t, err)
	assert.Equal(t, "b", snap.Winner)
	assert.Equal(t, 0, backend.gets)

	// Now evict second by re-fetching first through the backend twice; the
	// first lookup repopulates the cache, the second is served from it.
	snap, err = s.Get(context.Background(), first.ID)
	assert.NoError(t, err)
	assert.Equal(t, "a", snap.Winner)
	assert.Equal(t, 1, backend.gets)

	_, err = s.Get(context.Background(), first.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, backend.gets)
}

func TestEviction_KeepsMostRecent(t *testing.T) {
	const keep = 5
	s := newTestStore(100, keep)

	var ids []string
	for i := 0; i < keep+5; i++ {
		m := newTestMatch()
		assert.NoError(t, s.Add(m))
		finish(t, m, "a")
		assert.NoError(t, s.Finalize(context.Background(), m))
		ids = append(ids, m.ID)
	}

	recent, err := s.Recent(context.Background(), 0)
	assert.NoError(t, err)
	// Everything is still reachable through the backend.
	assert.Len(t, recent, keep+5)

	s.mu.RLock()
	cached := len(s.completed)
	_, newestCached := s.completed[ids[len(ids)-1]]
	_, oldestCached := s.completed[ids[0]]
	s.mu.RUnlock()
	assert.Equal(t, keep, cached)
	assert.True(t, newestCached)
	assert.False(t, oldestCached)
}

func TestChallengeCache_EvictsUnreferenced(t *testing.T) {
	s := newTestStore(100, 1)

	first := match.New(match.TypeStandardDuel, "a", "b", challenge.Challenge{ID: "ch-1", Prompt: "p1"})
	second := match.New(match.TypeStandardDuel, "a", "b", challenge.Challenge{ID: "ch-2", Prompt: "p2"})

	assert.NoError(t, s.Add(first))
	_, ok := s.GetChallenge("ch-1")
	assert.True(t, ok)

	finish(t, first, "a")
	assert.NoError(t, s.Finalize(context.Background(), first))

	// Evicting the first match drops its now-unreferenced challenge.
	assert.NoError(t, s.Add(second))
	finish(t, second, "b")
	assert.NoError(t, s.Finalize(context.Background(), second))

	_, ok = s.GetChallenge("ch-1")
	assert.False(t, ok)
	_, ok = s.GetChallenge("ch-2")
	assert.True(t, ok)
}

func TestRecent_MostRecentFirstAndLimited(t *testing.T) {
	s := newTestStore(100, 50)
	var last string
	for i := 0; i < 4; i++ {
		m := newTestMatch()
		assert.NoError(t, s.Add(m))
		finish(t, m, []string{"a", "b"}[i%2])
		assert.NoError(t, s.Finalize(context.Background(), m))
		last = m.ID
	}

	recent, err := s.Recent(context.Background(), 2)
	assert.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.Equal(t, last, recent[0].ID)
}
