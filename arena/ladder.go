package arena

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentarena/competitor"
	"github.com/hupe1980/agentarena/match"
	"github.com/hupe1980/agentarena/rating"
	"github.com/hupe1980/agentarena/store"
)

// SweepReport summarizes what a promotion sweep changed.
type SweepReport struct {
	Promoted  []string // competitor ids
	Demoted   []string
	Challenge *match.Match // champion challenge created by the sweep, if any
}

// RunPromotionSweep walks the roster applying pending division changes:
// demotions first (including the champion), then promotions, then champion
// succession so the throne never stays vacant while a Master exists.
// Finally, if the throne is held and a Master qualifies, a champion
// challenge is started.
func (a *Arena) RunPromotionSweep(ctx context.Context) SweepReport {
	var report SweepReport

	for _, c := range a.roster.Active() {
		d := c.Division()
		w := c.Stats().Window
		if !rating.ShouldDemote(d, w) {
			continue
		}
		to := d.Below()
		c.ChangeDivision(to, fmt.Sprintf("sweep: win rate %.0f%% in %s", w.WinRate(), d))
		a.logger.Info("sweep demotion", "competitor", c.Name, "from", d, "to", to)
		report.Demoted = append(report.Demoted, c.ID)
	}

	for _, c := range a.roster.Active() {
		d := c.Division()
		if d >= competitor.DivisionMaster {
			continue
		}
		w := c.Stats().Window
		if !rating.ShouldPromote(d, w) {
			continue
		}
		to := d.Above()
		c.ChangeDivision(to, fmt.Sprintf("sweep: win rate %.0f%% in %s", w.WinRate(), d))
		a.logger.Info("sweep promotion", "competitor", c.Name, "from", d, "to", to)
		report.Promoted = append(report.Promoted, c.ID)
	}

	if a.roster.Champion() == nil {
		if masters := a.roster.TopOf(competitor.DivisionMaster); len(masters) > 0 {
			heir := masters[0]
			heir.ChangeDivision(competitor.DivisionChampion, "succession: highest rated master")
			a.logger.Info("throne succession", "competitor", heir.Name, "rating", heir.Rating())
			report.Promoted = append(report.Promoted, heir.ID)
		}
	} else if challenger := a.eligibleChallenger(); challenger != nil {
		m, err := a.ChallengeChampion(ctx, challenger.ID)
		switch {
		case err == nil:
			report.Challenge = m
		case errors.Is(err, ErrChallengePending), errors.Is(err, store.ErrTooManyLiveMatches):
			// Try again next sweep.
		default:
			a.logger.Warn("sweep challenge failed", "challenger", challenger.Name, "error", err)
		}
	}

	return report
}

// eligibleChallenger returns the highest rated Master whose window earns a
// shot at the title, or nil.
func (a *Arena) eligibleChallenger() *competitor.Competitor {
	for _, c := range a.roster.TopOf(competitor.DivisionMaster) {
		if rating.ShouldPromote(competitor.DivisionMaster, c.Stats().Window) {
			return c
		}
	}
	return nil
}

// ChallengeChampion starts a title match between an eligible Master and the
// current champion. Only one champion challenge may be live at a time.
func (a *Arena) ChallengeChampion(ctx context.Context, challengerID string) (*match.Match, error) {
	challenger, ok := a.roster.Get(challengerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompetitor, challengerID)
	}
	champion := a.roster.Champion()
	if champion == nil {
		return nil, errors.New("arena: no champion to challenge")
	}
	if challenger.Division() != competitor.DivisionMaster {
		return nil, fmt.Errorf("%w: %s is not a master", ErrNotEligible, challenger.Name)
	}
	if !rating.ShouldPromote(competitor.DivisionMaster, challenger.Stats().Window) {
		return nil, fmt.Errorf("%w: %s has not earned a title shot", ErrNotEligible, challenger.Name)
	}

	a.mu.Lock()
	if a.pendingChallenge {
		a.mu.Unlock()
		return nil, ErrChallengePending
	}
	a.pendingChallenge = true
	a.mu.Unlock()

	m, err := a.CreateMatch(ctx, match.TypeChampionChallenge, challenger.ID, champion.ID)
	if err != nil {
		a.mu.Lock()
		a.pendingChallenge = false
		a.mu.Unlock()
		return nil, err
	}
	a.logger.Info("champion challenge started", "match_id", m.ID, "challenger", challenger.Name, "champion", champion.Name)
	return m, nil
}

// RunRound pairs active competitors within each division and starts a
// standard duel per pair. Pairings exceeding the admission ceiling are
// skipped. Returns the created matches.
func (a *Arena) RunRound(ctx context.Context) ([]*match.Match, error) {
	var created []*match.Match

	for d := competitor.DivisionNovice; d <= competitor.DivisionChampion; d++ {
		members := a.roster.ActiveIn(d)
		if len(members) < 2 {
			continue
		}
		a.shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		for i := 0; i+1 < len(members); i += 2 {
			m, err := a.CreateMatch(ctx, match.TypeStandardDuel, members[i].ID, members[i+1].ID)
			if err != nil {
				if errors.Is(err, store.ErrTooManyLiveMatches) {
					a.logger.Warn("round pairing skipped, live ceiling reached")
					return created, nil
				}
				a.logger.Warn("round pairing failed", "error", err)
				continue
			}
			created = append(created, m)
		}
	}
	return created, nil
}
