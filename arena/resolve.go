package arena

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentarena/competitor"
	"github.com/hupe1980/agentarena/judge"
	"github.com/hupe1980/agentarena/match"
	"github.com/hupe1980/agentarena/oracle"
	"github.com/hupe1980/agentarena/rating"
)

// DefaultRubric is the criteria set judges score when the challenge does not
// narrow it down.
var DefaultRubric = []string{
	"correctness",
	"completeness",
	"logical_consistency",
	"clarity",
	"creativity",
	"depth",
}

// adjudicate convenes the judge panel and completes the match with its
// verdict.
func (a *Arena) adjudicate(ctx context.Context, m *match.Match, ca, cb *competitor.Competitor) {
	panel := a.panelFor(m, ca, cb)

	req := oracle.EvaluationRequest{
		Transcript: renderTranscript(m, ca, cb),
		Rubric:     rubricFor(m),
		Answer:     m.Challenge.Answer,
	}

	v := panel.Evaluate(ctx, req)
	for i := 0; i < v.Failed; i++ {
		a.metrics.JudgeFailed()
	}

	var winnerID string
	switch v.Winner {
	case oracle.RecommendSideA:
		winnerID = ca.ID
	case oracle.RecommendSideB:
		winnerID = cb.ID
	}

	if err := m.Complete(winnerID, match.Scores{SideA: v.ScoreA, SideB: v.ScoreB}); err != nil {
		a.logger.Error("complete failed", "match_id", m.ID, "error", err)
		_ = m.Fail("verdict could not be applied")
		a.finalize(ctx, m)
		return
	}
	a.logger.Info("match adjudicated",
		"match_id", m.ID,
		"decision", v.Decision,
		"winner", winnerID,
		"confidence", v.Confidence,
	)
	a.settle(ctx, m, ca, cb)
}

// panelFor picks judges from the roster, skipping the participants and any
// judge without a registered model. When the roster cannot fill the panel
// and a system judge is configured, the remaining seats go to it, so the
// random no-quorum verdict stays a last resort.
func (a *Arena) panelFor(m *match.Match, ca, cb *competitor.Competitor) *judge.Panel {
	var judges []judge.Judge
	for _, c := range a.roster.Judges(a.judgeMinDiv, ca.ID, cb.ID) {
		if len(judges) >= a.panelSize {
			break
		}
		o, err := a.modelFor(c)
		if err != nil {
			continue
		}
		judges = append(judges, judge.Judge{ID: c.ID, Name: c.Name, Evaluator: o})
	}
	if a.systemJudge != nil {
		for i := len(judges); i < a.panelSize; i++ {
			judges = append(judges, judge.Judge{
				ID:        fmt.Sprintf("system-judge-%d", i+1),
				Name:      "system judge",
				Evaluator: a.systemJudge,
			})
		}
	}
	return judge.NewPanel(judges, judge.WithLogger(a.logger))
}

func rubricFor(m *match.Match) []string {
	if len(m.Challenge.Rubric) == 0 {
		return DefaultRubric
	}
	rubric := append([]string(nil), DefaultRubric...)
	seen := make(map[string]struct{}, len(rubric))
	for _, c := range rubric {
		seen[c] = struct{}{}
	}
	for _, c := range m.Challenge.Rubric {
		if _, ok := seen[c]; !ok {
			rubric = append(rubric, c)
		}
	}
	return rubric
}

func renderTranscript(m *match.Match, ca, cb *competitor.Competitor) string {
	labels := map[string]string{ca.ID: "Side A", cb.ID: "Side B"}
	var b strings.Builder
	fmt.Fprintf(&b, "Challenge: %s\n\n", m.Challenge.Prompt)
	for _, e := range m.Transcript() {
		if e.Streaming {
			continue
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", labels[e.CompetitorID], e.Text)
	}
	return b.String()
}

// settle applies rating changes, ladder effects and persistence for a
// completed match.
func (a *Arena) settle(ctx context.Context, m *match.Match, ca, cb *competitor.Competitor) {
	result, winnerID, _ := m.Outcome()

	outcomeA := rating.Draw
	resultA, resultB := "draw", "draw"
	switch result {
	case match.ResultWinA:
		outcomeA = rating.Win
		resultA, resultB = "win", "loss"
	case match.ResultWinB:
		outcomeA = rating.Loss
		resultA, resultB = "loss", "win"
	}

	ra, rb := ca.Rating(), cb.Rating()
	newA, newB := rating.Update(ra, rb, outcomeA)

	ca.ApplyResult(competitor.RatingEntry{
		Rating:         newA,
		MatchID:        m.ID,
		OpponentID:     cb.ID,
		OpponentRating: rb,
		Result:         resultA,
		Delta:          newA - ra,
	})
	cb.ApplyResult(competitor.RatingEntry{
		Rating:         newB,
		MatchID:        m.ID,
		OpponentID:     ca.ID,
		OpponentRating: ra,
		Result:         resultB,
		Delta:          newB - rb,
	})

	if m.Type == match.TypeChampionChallenge {
		a.settleChampionChallenge(m, ca, cb, winnerID)
	}

	a.checkLadder(ca)
	a.checkLadder(cb)

	a.finalize(ctx, m)
}

// settleChampionChallenge swaps divisions when the challenger dethrones the
// champion. A draw or champion win defends the title.
func (a *Arena) settleChampionChallenge(m *match.Match, ca, cb *competitor.Competitor, winnerID string) {
	champion, challenger := ca, cb
	if cb.Division() == competitor.DivisionChampion {
		champion, challenger = cb, ca
	}
	if champion.Division() != competitor.DivisionChampion || winnerID != challenger.ID {
		return
	}
	champion.ChangeDivision(competitor.DivisionMaster, "dethroned in champion challenge")
	challenger.ChangeDivision(competitor.DivisionChampion, "won champion challenge")
	a.logger.Info("title changed hands", "match_id", m.ID, "new_champion", challenger.Name, "dethroned", champion.Name)
}

// checkLadder applies promotion or demotion earned by the competitor's
// current division window. Champion demotion and Master ascension with an
// occupied throne are handled by the promotion sweep.
func (a *Arena) checkLadder(c *competitor.Competitor) {
	d := c.Division()
	w := c.Stats().Window

	if d != competitor.DivisionChampion && rating.ShouldDemote(d, w) {
		to := d.Below()
		c.ChangeDivision(to, fmt.Sprintf("win rate %.0f%% in %s", w.WinRate(), d))
		a.logger.Info("competitor demoted", "competitor", c.Name, "from", d, "to", to)
		return
	}

	if rating.ShouldPromote(d, w) {
		if d == competitor.DivisionMaster {
			if a.roster.Champion() == nil {
				c.ChangeDivision(competitor.DivisionChampion, "ascended to vacant throne")
				a.logger.Info("competitor promoted", "competitor", c.Name, "from", d, "to", competitor.DivisionChampion)
			}
			return
		}
		to := d.Above()
		c.ChangeDivision(to, fmt.Sprintf("win rate %.0f%% in %s", w.WinRate(), d))
		a.logger.Info("competitor promoted", "competitor", c.Name, "from", d, "to", to)
	}
}

// finalize moves the match out of the live set and persists its snapshot.
// A failed write gets one retry; a terminal match has no later write point
// to piggyback on.
func (a *Arena) finalize(ctx context.Context, m *match.Match) {
	snap := m.Snapshot()
	if !snap.Status.Terminal() {
		_ = m.Fail("match abandoned without terminal state")
		snap = m.Snapshot()
	}
	if err := a.store.Finalize(ctx, m); err != nil {
		a.logger.Warn("finalize failed, retrying", "match_id", m.ID, "error", err)
		if err := a.store.Finalize(ctx, m); err != nil {
			a.logger.Error("finalize failed", "match_id", m.ID, "error", err)
		}
	}
	if m.Type == match.TypeChampionChallenge {
		a.mu.Lock()
		a.pendingChallenge = false
		a.mu.Unlock()
	}
	a.metrics.MatchCompleted(string(snap.Status), m.Duration().Seconds())
	a.logger.Info("match finalized", "match_id", m.ID, "status", snap.Status, "duration", m.Duration())
}
