// Package judge runs the evaluation panel. A Panel fans an evaluation
// request out to its judges concurrently, drops judges that fail, and folds
// the surviving scorecards into a single Verdict. An empty or fully failed
// panel degrades to a random decision rather than blocking the ladder.
package judge

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/agentarena/logging"
	"github.com/hupe1980/agentarena/oracle"
)

// DefaultPanelSize is how many judges sit on a panel unless configured
// otherwise.
const DefaultPanelSize = 2

// DefaultDrawMargin is the score difference below which the panel calls a
// draw unless configured otherwise.
const DefaultDrawMargin = 0.5

// Judge is one evaluator on the panel.
type Judge struct {
	ID        string
	Name      string
	Evaluator oracle.Evaluator
}

// Decision is what the panel concluded.
type Decision string

const (
	// DecisionConsensus means enough judges returned scorecards and their
	// averages produced the verdict.
	DecisionConsensus Decision = "consensus"

	// DecisionNoQuorum means every judge failed; the verdict is a random
	// fallback so the match can still resolve.
	DecisionNoQuorum Decision = "no_quorum"
)

// Verdict is the panel's final word on a match.
type Verdict struct {
	Decision   Decision              `json:"decision"`
	Winner     oracle.Recommendation `json:"winner"`
	ScoreA     float64               `json:"score_a"`
	ScoreB     float64               `json:"score_b"`
	Confidence float64               `json:"confidence"` // fraction of judges agreeing with the verdict
	Judges     int                   `json:"judges"`     // scorecards that counted
	Failed     int                   `json:"failed"`     // judges dropped for errors
}

// Options configures a Panel.
type Options struct {
	Logger logging.Logger
	Rand   *rand.Rand

	// DrawMargin is the minimum average score difference for a decisive
	// verdict.
	DrawMargin float64
}

// Panel evaluates match transcripts with a fixed set of judges.
type Panel struct {
	judges []Judge
	logger logging.Logger
	margin float64
	rng    *rand.Rand
	rngMu  sync.Mutex
}

// NewPanel builds a panel. optFns are applied left to right.
func NewPanel(judges []Judge, optFns ...func(*Options)) *Panel {
	opts := Options{
		Logger:     logging.NewDefaultSlogLogger(),
		DrawMargin: DefaultDrawMargin,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Panel{
		judges: judges,
		logger: opts.Logger,
		margin: opts.DrawMargin,
		rng:    opts.Rand,
	}
}

// WithLogger sets the panel logger.
func WithLogger(l logging.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// WithRand sets the random source for degraded fallbacks.
func WithRand(r *rand.Rand) func(*Options) {
	return func(o *Options) { o.Rand = r }
}

// WithDrawMargin sets the minimum score margin for a decisive verdict.
func WithDrawMargin(m float64) func(*Options) {
	return func(o *Options) { o.DrawMargin = m }
}

// Size returns the number of judges on the panel.
func (p *Panel) Size() int { return len(p.judges) }

type judged struct {
	judge Judge
	card  *oracle.Scorecard
	err   error
}

// Evaluate fans the request out to every judge and folds the results into a
// Verdict. Individual judge errors are logged and dropped; only a panel-wide
// failure produces a no-quorum verdict.
func (p *Panel) Evaluate(ctx context.Context, req oracle.EvaluationRequest) Verdict {
	results := make([]judged, len(p.judges))

	var wg sync.WaitGroup
	for i, j := range p.judges {
		wg.Add(1)
		go func(i int, j Judge) {
			defer wg.Done()
			card, err := j.Evaluator.Evaluate(ctx, req)
			results[i] = judged{judge: j, card: card, err: err}
		}(i, j)
	}
	wg.Wait()

	var cards []*oracle.Scorecard
	failed := 0
	for _, r := range results {
		if r.err != nil || r.card == nil {
			failed++
			p.logger.Warn("judge failed", "judge", r.judge.Name, "error", r.err)
			continue
		}
		cards = append(cards, r.card)
	}

	if len(cards) == 0 {
		return p.fallback(failed)
	}
	return p.consensus(cards, failed)
}

// consensus averages per-judge totals and applies the draw margin. The
// confidence is the fraction of judges whose individual verdict matches the
// panel's.
func (p *Panel) consensus(cards []*oracle.Scorecard, failed int) Verdict {
	var sumA, sumB float64
	for _, c := range cards {
		sumA += c.TotalA()
		sumB += c.TotalB()
	}
	avgA := sumA / float64(len(cards))
	avgB := sumB / float64(len(cards))

	winner := oracle.RecommendDraw
	if diff := avgA - avgB; math.Abs(diff) >= p.margin {
		if diff > 0 {
			winner = oracle.RecommendSideA
		} else {
			winner = oracle.RecommendSideB
		}
	}

	agree := 0
	for _, c := range cards {
		if cardWinner(c, p.margin) == winner {
			agree++
		}
	}

	v := Verdict{
		Decision:   DecisionConsensus,
		Winner:     winner,
		ScoreA:     avgA,
		ScoreB:     avgB,
		Confidence: float64(agree) / float64(len(cards)),
		Judges:     len(cards),
		Failed:     failed,
	}
	p.logger.Info("panel verdict", "winner", v.Winner, "score_a", v.ScoreA, "score_b", v.ScoreB, "judges", v.Judges, "failed", v.Failed)
	return v
}

// fallback picks a random winner with nominal scores when no scorecard
// survived.
func (p *Panel) fallback(failed int) Verdict {
	p.rngMu.Lock()
	aWins := p.rng.Intn(2) == 0
	p.rngMu.Unlock()

	v := Verdict{
		Decision:   DecisionNoQuorum,
		Winner:     oracle.RecommendSideB,
		ScoreA:     5.5,
		ScoreB:     6.0,
		Confidence: 0,
		Failed:     failed,
	}
	if aWins {
		v.Winner = oracle.RecommendSideA
		v.ScoreA, v.ScoreB = 6.0, 5.5
	}
	p.logger.Warn("no judge quorum, random verdict", "winner", v.Winner, "failed", failed)
	return v
}

func cardWinner(c *oracle.Scorecard, margin float64) oracle.Recommendation {
	if c.Winner != "" {
		return c.Winner
	}
	diff := c.TotalA() - c.TotalB()
	if math.Abs(diff) < margin {
		return oracle.RecommendDraw
	}
	if diff > 0 {
		return oracle.RecommendSideA
	}
	return oracle.RecommendSideB
}
