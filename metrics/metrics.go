// Package metrics exposes Prometheus instrumentation for the arena. All
// record methods are nil-safe so instrumented code never has to check
// whether metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures metric construction.
type Options struct {
	Namespace string
	Registry  *prometheus.Registry
}

// Metrics holds the arena's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	matchesStarted      *prometheus.CounterVec
	matchesCompleted    *prometheus.CounterVec
	admissionRejections prometheus.Counter
	judgeFailures       prometheus.Counter
	oracleFailures      *prometheus.CounterVec
	liveMatches         prometheus.Gauge
	matchDuration       prometheus.Histogram
}

// New builds and registers the arena collectors.
func New(optFns ...func(*Options)) *Metrics {
	opts := Options{Namespace: "arena"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: opts.Registry,
		matchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "matches_started_total",
			Help:      "Matches admitted and started, by match type.",
		}, []string{"type"}),
		matchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "matches_completed_total",
			Help:      "Matches reaching a terminal state, by final status.",
		}, []string{"status"}),
		admissionRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "admission_rejections_total",
			Help:      "Match creations rejected by the live ceiling.",
		}),
		judgeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "judge_failures_total",
			Help:      "Individual judge evaluations that errored.",
		}),
		oracleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "oracle_failures_total",
			Help:      "Failed oracle generations, by competitor.",
		}, []string{"competitor"}),
		liveMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "live_matches",
			Help:      "Currently admitted matches.",
		}),
		matchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "match_duration_seconds",
			Help:      "Wall clock duration of completed matches.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	opts.Registry.MustRegister(
		m.matchesStarted,
		m.matchesCompleted,
		m.admissionRejections,
		m.judgeFailures,
		m.oracleFailures,
		m.liveMatches,
		m.matchDuration,
	)
	return m
}

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) func(*Options) {
	return func(o *Options) { o.Namespace = ns }
}

// WithRegistry registers collectors on an existing registry.
func WithRegistry(r *prometheus.Registry) func(*Options) {
	return func(o *Options) { o.Registry = r }
}

// Registry returns the underlying registry for scrape handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// MatchStarted records an admitted match.
func (m *Metrics) MatchStarted(matchType string) {
	if m == nil {
		return
	}
	m.matchesStarted.WithLabelValues(matchType).Inc()
	m.liveMatches.Inc()
}

// MatchCompleted records a terminal match and its duration.
func (m *Metrics) MatchCompleted(status string, seconds float64) {
	if m == nil {
		return
	}
	m.matchesCompleted.WithLabelValues(status).Inc()
	m.liveMatches.Dec()
	m.matchDuration.Observe(seconds)
}

// AdmissionRejected records a creation refused by the live ceiling.
func (m *Metrics) AdmissionRejected() {
	if m == nil {
		return
	}
	m.admissionRejections.Inc()
}

// JudgeFailed records one dropped judge evaluation.
func (m *Metrics) JudgeFailed() {
	if m == nil {
		return
	}
	m.judgeFailures.Inc()
}

// OracleFailed records a failed generation for a competitor.
func (m *Metrics) OracleFailed(competitor string) {
	if m == nil {
		return
	}
	m.oracleFailures.WithLabelValues(competitor).Inc()
}
