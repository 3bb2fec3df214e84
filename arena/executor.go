package arena

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentarena/competitor"
	"github.com/hupe1980/agentarena/match"
	"github.com/hupe1980/agentarena/oracle"
)

// Forfeit scores awarded when one side fails to produce a response.
const (
	forfeitWinScore  = 8.0
	forfeitLossScore = 2.0
)

// run drives a match from start to a terminal state. Every exit path ends
// with a snapshot in the store; a panic in an oracle adapter fails the match
// rather than killing the process.
func (a *Arena) run(ctx context.Context, m *match.Match, ca, cb *competitor.Competitor) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("match panicked", "match_id", m.ID, "panic", fmt.Sprint(r))
			_ = m.Fail(fmt.Sprintf("panic: %v", r))
			a.finalize(ctx, m)
		}
	}()

	if err := m.Start(); err != nil {
		a.finalize(ctx, m)
		return
	}

	oa, errA := a.modelFor(ca)
	ob, errB := a.modelFor(cb)
	if errA != nil || errB != nil {
		_ = m.Fail("missing oracle model")
		a.finalize(ctx, m)
		return
	}

	var okA, okB bool
	if m.Type == match.TypeDebate {
		okA, okB = a.runDebate(ctx, m, ca, cb, oa, ob)
	} else {
		okA, okB = a.runDuel(ctx, m, ca, cb, oa, ob)
	}

	switch {
	case !okA && !okB:
		_ = m.Cancel("both competitors failed to respond")
		a.finalize(ctx, m)
		return
	case !okA:
		a.forfeit(ctx, m, ca, cb, cb.ID)
		return
	case !okB:
		a.forfeit(ctx, m, ca, cb, ca.ID)
		return
	}

	_ = m.AwaitJudgment()
	a.adjudicate(ctx, m, ca, cb)
}

// runDuel asks both sides the same challenge concurrently. Partial output
// streams into the transcript as it arrives.
func (a *Arena) runDuel(ctx context.Context, m *match.Match, ca, cb *competitor.Competitor, oa, ob oracle.Oracle) (okA, okB bool) {
	req := oracle.Request{
		System: "You are competing in a ranked arena. Give your best answer.",
		Prompt: m.Challenge.Prompt,
		Stream: true,
	}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	sides := []struct {
		c *competitor.Competitor
		o oracle.Oracle
	}{{ca, oa}, {cb, ob}}

	for i, s := range sides {
		wg.Add(1)
		go func(i int, c *competitor.Competitor, o oracle.Oracle) {
			defer wg.Done()
			results[i] = a.generateTurn(ctx, m, c, o, req)
		}(i, s.c, s.o)
	}
	wg.Wait()
	return results[0], results[1]
}

// runDebate alternates turns between the two sides. Each turn sees the
// transcript so far; a failed turn forfeits the debate.
func (a *Arena) runDebate(ctx context.Context, m *match.Match, ca, cb *competitor.Competitor, oa, ob oracle.Oracle) (okA, okB bool) {
	exchanges := m.Exchanges
	if exchanges <= 0 {
		exchanges = a.exchanges
	}

	names := map[string]string{ca.ID: ca.Name, cb.ID: cb.Name}
	for turn := 0; turn < exchanges*2; turn++ {
		c, o := ca, oa
		if turn%2 == 1 {
			c, o = cb, ob
		}

		prompt := debatePrompt(m, names, turn)
		ok := a.generateTurn(ctx, m, c, o, oracle.Request{
			System: "You are debating in a ranked arena. Address your opponent's points directly.",
			Prompt: prompt,
			Stream: true,
		})
		if !ok {
			if c.ID == ca.ID {
				return false, true
			}
			return true, false
		}
	}
	return true, true
}

func debatePrompt(m *match.Match, names map[string]string, turn int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Debate topic: %s\n", m.Challenge.Prompt)
	if turn == 0 {
		b.WriteString("\nYou speak first. Present your opening argument.")
		return b.String()
	}
	b.WriteString("\nTranscript so far:\n")
	for _, e := range m.Transcript() {
		fmt.Fprintf(&b, "[%s] %s\n", names[e.CompetitorID], e.Text)
	}
	b.WriteString("\nRespond to your opponent and advance your position.")
	return b.String()
}

// generateTurn runs one generation, streaming partials into the transcript,
// and records the attempt against the competitor's failure rate. Returns
// false when the generation failed or produced nothing.
func (a *Arena) generateTurn(ctx context.Context, m *match.Match, c *competitor.Competitor, o oracle.Oracle, req oracle.Request) bool {
	res := oracle.Collect(ctx, o, req, func(soFar string) {
		_ = m.SubmitPartial(c.ID, soFar)
	})

	rate, attempts := c.RecordGeneration(!res.Ok())
	if !res.Ok() {
		a.metrics.OracleFailed(c.Name)
		a.logger.Warn("generation failed", "match_id", m.ID, "competitor", c.Name, "error", res.Err)
		if attempts >= a.deactAttempts && rate > a.deactRate {
			c.Deactivate(fmt.Sprintf("failure rate %.0f%% over %d attempts", rate*100, attempts))
			a.logger.Warn("competitor deactivated", "competitor", c.Name, "failure_rate", rate)
		}
		return false
	}
	if err := m.SubmitResponse(c.ID, res.Text); err != nil {
		a.logger.Error("submit response failed", "match_id", m.ID, "competitor", c.Name, "error", err)
		return false
	}
	a.logger.Debug("turn completed", "match_id", m.ID, "competitor", c.Name, "elapsed", res.Elapsed)
	return true
}

// forfeit resolves a match where one side failed to respond.
func (a *Arena) forfeit(ctx context.Context, m *match.Match, ca, cb *competitor.Competitor, winnerID string) {
	scores := match.Scores{SideA: forfeitLossScore, SideB: forfeitWinScore}
	if winnerID == ca.ID {
		scores = match.Scores{SideA: forfeitWinScore, SideB: forfeitLossScore}
	}
	if err := m.Complete(winnerID, scores); err != nil {
		_ = m.Fail("forfeit resolution failed")
		a.finalize(ctx, m)
		return
	}
	a.logger.Info("match forfeited", "match_id", m.ID, "winner", winnerID)
	a.settle(ctx, m, ca, cb)
}
