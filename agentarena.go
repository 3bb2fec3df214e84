// Package agentarena provides a high-level façade over the arena
// orchestrator and its supporting services (roster, match store, challenge
// sources & logging) enabling rapid construction of competitive model
// ladders. Most applications interact with this package by:
//  1. Creating an AgentArena via New() (optionally overriding the default in-memory store)
//  2. Registering oracle models and enrolling competitors
//  3. Running matches (RunMatch, RunRound) and sweeps (RunPromotionSweep)
//
// The façade delegates orchestration to arena.Arena while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store
// implementation and a structured logger.
package agentarena

import (
	"context"

	"github.com/hupe1980/agentarena/arena"
	"github.com/hupe1980/agentarena/challenge"
	"github.com/hupe1980/agentarena/competitor"
	"github.com/hupe1980/agentarena/logging"
	"github.com/hupe1980/agentarena/match"
	"github.com/hupe1980/agentarena/metrics"
	"github.com/hupe1980/agentarena/oracle"
	"github.com/hupe1980/agentarena/store"
)

// Options configures the AgentArena instance.
type Options struct {
	// Durable persists terminal match snapshots. Defaults to an in-memory
	// backend.
	Durable store.Durable

	// Source supplies challenges. Defaults to an empty pool; enroll
	// challenges via AddChallenge or supply an oracle-backed generator.
	Source challenge.Source

	// PanelSize is how many judges evaluate each match.
	PanelSize int

	// SystemJudge pads judge panels when the roster cannot fill them.
	SystemJudge oracle.Evaluator

	// MaxLiveMatches caps concurrently running matches.
	MaxLiveMatches int

	// Metrics enables Prometheus instrumentation when non-nil.
	Metrics *metrics.Metrics

	// Logger (defaults to a slog-backed logger if nil)
	Logger logging.Logger
}

// AgentArena is the high-level façade aggregating the orchestrator and its
// services.
type AgentArena struct {
	roster *competitor.Roster
	pool   *challenge.Pool
	arena  *arena.Arena
}

// New creates a new AgentArena instance with optional overrides. Any unset
// service is backed by a safe in-memory default.
func New(optFns ...func(*Options)) *AgentArena {
	opts := Options{
		PanelSize:      2,
		MaxLiveMatches: store.DefaultMaxLive,
		Logger:         logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Durable == nil {
		opts.Durable = store.NewInMemory()
	}

	roster := competitor.NewRoster()
	pool := challenge.NewPool(nil, 1)

	source := opts.Source
	if source == nil {
		source = pool
	}

	ms := store.NewMatchStore(opts.Durable,
		store.WithLogger(opts.Logger),
		store.WithMaxLive(opts.MaxLiveMatches),
	)

	a := arena.New(roster,
		arena.WithLogger(opts.Logger),
		arena.WithStore(ms),
		arena.WithSource(source),
		arena.WithPanelSize(opts.PanelSize),
		arena.WithSystemJudge(opts.SystemJudge),
		arena.WithMetrics(opts.Metrics),
	)

	return &AgentArena{roster: roster, pool: pool, arena: a}
}

// WithDurable sets the persistence backend.
func WithDurable(d store.Durable) func(*Options) {
	return func(o *Options) { o.Durable = d }
}

// WithSource sets the challenge source.
func WithSource(s challenge.Source) func(*Options) {
	return func(o *Options) { o.Source = s }
}

// WithPanelSize sets the judge panel size.
func WithPanelSize(n int) func(*Options) {
	return func(o *Options) { o.PanelSize = n }
}

// WithSystemJudge sets the evaluator used to pad short judge panels.
func WithSystemJudge(e oracle.Evaluator) func(*Options) {
	return func(o *Options) { o.SystemJudge = e }
}

// WithMaxLiveMatches sets the admission ceiling.
func WithMaxLiveMatches(n int) func(*Options) {
	return func(o *Options) { o.MaxLiveMatches = n }
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) func(*Options) {
	return func(o *Options) { o.Metrics = m }
}

// WithLogger sets the logger used across all services.
func WithLogger(l logging.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// RegisterModel binds an oracle implementation to a model reference.
func (aa *AgentArena) RegisterModel(ref string, o oracle.Oracle) {
	aa.arena.RegisterModel(ref, o)
}

// Enroll creates and registers a competitor backed by the given model
// reference.
func (aa *AgentArena) Enroll(name, modelRef string) (*competitor.Competitor, error) {
	c := competitor.New(name, modelRef)
	if err := aa.roster.Add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddChallenge adds a challenge to the built-in pool.
func (aa *AgentArena) AddChallenge(c challenge.Challenge) challenge.Challenge {
	return aa.pool.Add(c)
}

// RunMatch runs a match to completion and returns its terminal snapshot.
func (aa *AgentArena) RunMatch(ctx context.Context, t match.Type, sideAID, sideBID string) (match.Snapshot, error) {
	return aa.arena.RunMatch(ctx, t, sideAID, sideBID)
}

// RunRound pairs each division and starts standard duels.
func (aa *AgentArena) RunRound(ctx context.Context) ([]*match.Match, error) {
	return aa.arena.RunRound(ctx)
}

// RunPromotionSweep applies pending division changes across the roster.
func (aa *AgentArena) RunPromotionSweep(ctx context.Context) arena.SweepReport {
	return aa.arena.RunPromotionSweep(ctx)
}

// Arena exposes the underlying orchestrator for advanced use.
func (aa *AgentArena) Arena() *arena.Arena { return aa.arena }

// Roster exposes the competitor aggregate.
func (aa *AgentArena) Roster() *competitor.Roster { return aa.roster }

// Close waits for live matches to finish.
func (aa *AgentArena) Close() { aa.arena.Close() }
