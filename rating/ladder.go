package rating

import "github.com/hupe1980/agentarena/competitor"

// Promotion and demotion look at the current-division window only. A
// competitor needs a minimum number of matches in the division before either
// rule can fire; streaks offer a fast path past the win-rate threshold.
const (
	promotionMinMatches = 3
	demotionMinMatches  = 4
)

type threshold struct {
	winRate float64 // percent
	streak  int
}

var promotionRules = map[competitor.Division]threshold{
	competitor.DivisionNovice: {winRate: 60, streak: 3},
	competitor.DivisionExpert: {winRate: 70, streak: 4},
	competitor.DivisionMaster: {winRate: 75, streak: 5},
}

var demotionRules = map[competitor.Division]threshold{
	competitor.DivisionChampion: {winRate: 40, streak: -3},
	competitor.DivisionMaster:   {winRate: 35, streak: -4},
	competitor.DivisionExpert:   {winRate: 30, streak: -4},
}

// ShouldPromote reports whether the window earns promotion out of the given
// division. Champions cannot be promoted further.
func ShouldPromote(d competitor.Division, w competitor.DivisionStats) bool {
	rule, ok := promotionRules[d]
	if !ok {
		return false
	}
	if w.Matches < promotionMinMatches {
		return false
	}
	return w.WinRate() >= rule.winRate || w.Streak >= rule.streak
}

// ShouldDemote reports whether the window forces demotion out of the given
// division. Novices cannot fall lower.
func ShouldDemote(d competitor.Division, w competitor.DivisionStats) bool {
	rule, ok := demotionRules[d]
	if !ok {
		return false
	}
	if w.Matches < demotionMinMatches {
		return false
	}
	return w.WinRate() <= rule.winRate || w.Streak <= rule.streak
}
