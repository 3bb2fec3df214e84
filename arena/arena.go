// Package arena wires the ladder together: it pairs competitors, runs
// matches on their oracle models, convenes judge panels, applies rating and
// division changes and persists the results. One goroutine per live match;
// the store's admission ceiling is the only concurrency limiter.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/agentarena/challenge"
	"github.com/hupe1980/agentarena/competitor"
	"github.com/hupe1980/agentarena/judge"
	"github.com/hupe1980/agentarena/logging"
	"github.com/hupe1980/agentarena/match"
	"github.com/hupe1980/agentarena/metrics"
	"github.com/hupe1980/agentarena/oracle"
	"github.com/hupe1980/agentarena/store"
)

var (
	// ErrUnknownCompetitor is returned when a match references a competitor
	// that is not on the roster.
	ErrUnknownCompetitor = errors.New("arena: unknown competitor")

	// ErrInactiveCompetitor is returned when pairing a deactivated
	// competitor.
	ErrInactiveCompetitor = errors.New("arena: competitor is inactive")

	// ErrNoModel is returned when a competitor's model reference has no
	// registered oracle.
	ErrNoModel = errors.New("arena: no model registered for competitor")

	// ErrChallengePending is returned when a champion challenge is already
	// underway.
	ErrChallengePending = errors.New("arena: champion challenge already pending")

	// ErrNotEligible is returned when a competitor does not qualify to
	// challenge the champion.
	ErrNotEligible = errors.New("arena: competitor not eligible to challenge")

	// ErrClosed is returned when creating a match after Close.
	ErrClosed = errors.New("arena: closed")
)

// Options configures an Arena.
type Options struct {
	Logger    logging.Logger
	Metrics   *metrics.Metrics
	Store     *store.MatchStore
	Source    challenge.Source
	Rand      *rand.Rand
	PanelSize int
	Exchanges int

	// SystemJudge pads the panel when the roster cannot field enough
	// judges, so healthy matches are not decided by the no-quorum fallback.
	SystemJudge oracle.Evaluator

	// JudgeMinDivision is the lowest division whose members may judge.
	JudgeMinDivision competitor.Division

	// DeactivationFailureRate and DeactivationMinAttempts control when a
	// competitor is removed from pairing for unreliable generation.
	DeactivationFailureRate float64
	DeactivationMinAttempts int
}

// Arena orchestrates matches over a roster of competitors.
type Arena struct {
	roster  *competitor.Roster
	store   *store.MatchStore
	source  challenge.Source
	logger  logging.Logger
	metrics *metrics.Metrics

	panelSize     int
	exchanges     int
	systemJudge   oracle.Evaluator
	judgeMinDiv   competitor.Division
	deactRate     float64
	deactAttempts int

	mu               sync.Mutex
	models           map[string]oracle.Oracle
	done             map[string]chan struct{}
	pendingChallenge bool

	rngMu sync.Mutex
	rng   *rand.Rand

	wg     sync.WaitGroup
	closed bool
}

// New creates an Arena over the given roster. optFns are applied left to
// right.
func New(roster *competitor.Roster, optFns ...func(*Options)) *Arena {
	opts := Options{
		Logger:                  logging.NewDefaultSlogLogger(),
		PanelSize:               judge.DefaultPanelSize,
		Exchanges:               3,
		JudgeMinDivision:        competitor.DivisionExpert,
		DeactivationFailureRate: 0.5,
		DeactivationMinAttempts: 3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Store == nil {
		opts.Store = store.NewMatchStore(store.NewInMemory(), store.WithLogger(opts.Logger))
	}
	if opts.Source == nil {
		opts.Source = challenge.NewPool(nil, rand.Int63())
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Arena{
		roster:        roster,
		store:         opts.Store,
		source:        opts.Source,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		panelSize:     opts.PanelSize,
		exchanges:     opts.Exchanges,
		systemJudge:   opts.SystemJudge,
		judgeMinDiv:   opts.JudgeMinDivision,
		deactRate:     opts.DeactivationFailureRate,
		deactAttempts: opts.DeactivationMinAttempts,
		models:        map[string]oracle.Oracle{},
		done:          map[string]chan struct{}{},
		rng:           opts.Rand,
	}
}

// WithLogger sets the arena logger.
func WithLogger(l logging.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) func(*Options) {
	return func(o *Options) { o.Metrics = m }
}

// WithStore sets the match store.
func WithStore(s *store.MatchStore) func(*Options) {
	return func(o *Options) { o.Store = s }
}

// WithSource sets the challenge source.
func WithSource(s challenge.Source) func(*Options) {
	return func(o *Options) { o.Source = s }
}

// WithPanelSize sets how many judges evaluate each match.
func WithPanelSize(n int) func(*Options) {
	return func(o *Options) { o.PanelSize = n }
}

// WithExchanges sets the number of debate rounds.
func WithExchanges(n int) func(*Options) {
	return func(o *Options) { o.Exchanges = n }
}

// WithSystemJudge sets the evaluator used to pad short judge panels.
func WithSystemJudge(e oracle.Evaluator) func(*Options) {
	return func(o *Options) { o.SystemJudge = e }
}

// WithJudgeMinDivision sets the lowest division eligible to judge.
func WithJudgeMinDivision(d competitor.Division) func(*Options) {
	return func(o *Options) { o.JudgeMinDivision = d }
}

// WithRand sets the random source used for pairing and degraded outcomes.
func WithRand(r *rand.Rand) func(*Options) {
	return func(o *Options) { o.Rand = r }
}

// RegisterModel binds an oracle to a model reference used by competitors.
func (a *Arena) RegisterModel(ref string, o oracle.Oracle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.models[ref] = o
}

// Roster returns the competitor aggregate.
func (a *Arena) Roster() *competitor.Roster { return a.roster }

// Store returns the match store.
func (a *Arena) Store() *store.MatchStore { return a.store }

func (a *Arena) modelFor(c *competitor.Competitor) (oracle.Oracle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.models[c.ModelRef]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoModel, c.Name, c.ModelRef)
	}
	return o, nil
}

// CreateMatch admits and starts a match between two competitors. The match
// runs on its own goroutine; the returned match can be polled via the store
// or awaited with Await. Returns store.ErrTooManyLiveMatches when the
// admission ceiling is reached.
func (a *Arena) CreateMatch(ctx context.Context, t match.Type, sideAID, sideBID string) (*match.Match, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	a.mu.Unlock()

	ca, cb, err := a.participants(sideAID, sideBID)
	if err != nil {
		return nil, err
	}

	filter := challenge.ForDivision(ca.Division())
	if t == match.TypeDebate {
		filter.Type = challenge.TypeDebate
	}
	ch, err := a.source.Random(ctx, filter)
	if err != nil && !errors.Is(err, challenge.ErrNoChallenge) {
		return nil, err
	}
	if errors.Is(err, challenge.ErrNoChallenge) {
		// Retry without the type constraint before giving up.
		filter.Type = ""
		if ch, err = a.source.Random(ctx, filter); err != nil {
			return nil, err
		}
	}

	m := match.New(t, ca.ID, cb.ID, ch)
	if t == match.TypeDebate {
		m.Exchanges = a.exchanges
	}

	if err := a.store.Add(m); err != nil {
		if errors.Is(err, store.ErrTooManyLiveMatches) {
			a.metrics.AdmissionRejected()
		}
		return nil, err
	}

	// Re-check closed in the same critical section as wg.Add: Close sets
	// the flag under a.mu before waiting, so a racing create must not Add
	// after the Wait has started.
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = m.Cancel("arena closed")
		_ = a.store.Finalize(ctx, m) // releases the admission slot
		return nil, ErrClosed
	}
	doneCh := make(chan struct{})
	a.done[m.ID] = doneCh
	a.wg.Add(1)
	a.mu.Unlock()

	a.metrics.MatchStarted(string(m.Type))
	a.logger.Info("match created", "match_id", m.ID, "type", m.Type, "side_a", ca.Name, "side_b", cb.Name)

	go func() {
		defer a.wg.Done()
		defer close(doneCh)
		a.run(ctx, m, ca, cb)
	}()

	return m, nil
}

func (a *Arena) participants(sideAID, sideBID string) (*competitor.Competitor, *competitor.Competitor, error) {
	if sideAID == sideBID {
		return nil, nil, fmt.Errorf("arena: competitor cannot face itself")
	}
	ca, ok := a.roster.Get(sideAID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCompetitor, sideAID)
	}
	cb, ok := a.roster.Get(sideBID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCompetitor, sideBID)
	}
	if !ca.Active() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInactiveCompetitor, ca.Name)
	}
	if !cb.Active() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInactiveCompetitor, cb.Name)
	}
	return ca, cb, nil
}

// Await blocks until the match reaches a terminal state or the context is
// cancelled.
func (a *Arena) Await(ctx context.Context, matchID string) error {
	a.mu.Lock()
	ch, ok := a.done[matchID]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateDivisionMatch picks two random active competitors from a division
// and starts a standard duel between them.
func (a *Arena) CreateDivisionMatch(ctx context.Context, d competitor.Division) (*match.Match, error) {
	members := a.roster.ActiveIn(d)
	if len(members) < 2 {
		return nil, fmt.Errorf("arena: division %s has %d active competitors, need 2", d, len(members))
	}
	a.shuffle(len(members), func(i, j int) {
		members[i], members[j] = members[j], members[i]
	})
	return a.CreateMatch(ctx, match.TypeStandardDuel, members[0].ID, members[1].ID)
}

// RunMatch creates a match and waits for its terminal snapshot.
func (a *Arena) RunMatch(ctx context.Context, t match.Type, sideAID, sideBID string) (match.Snapshot, error) {
	m, err := a.CreateMatch(ctx, t, sideAID, sideBID)
	if err != nil {
		return match.Snapshot{}, err
	}
	if err := a.Await(ctx, m.ID); err != nil {
		return match.Snapshot{}, err
	}
	return m.Snapshot(), nil
}

// GetMatch returns the current snapshot of a match, live or persisted.
func (a *Arena) GetMatch(ctx context.Context, id string) (match.Snapshot, error) {
	return a.store.Get(ctx, id)
}

// ListLiveMatches returns snapshots of the currently admitted matches.
func (a *Arena) ListLiveMatches() []match.Snapshot {
	live := a.store.Live()
	out := make([]match.Snapshot, 0, len(live))
	for _, m := range live {
		out = append(out, m.Snapshot())
	}
	return out
}

// RecentMatches returns up to limit completed matches, most recent first.
func (a *Arena) RecentMatches(ctx context.Context, limit int) ([]match.Snapshot, error) {
	return a.store.Recent(ctx, limit)
}

// Close waits for all live matches to finish. The arena admits no new
// matches afterwards.
func (a *Arena) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Arena) shuffle(n int, swap func(i, j int)) {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	a.rng.Shuffle(n, swap)
}
