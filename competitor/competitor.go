// Package competitor models the participants of the arena: their identity,
// division, performance statistics and the Roster aggregate that owns them.
//
// A Competitor is created at onboarding and never destroyed, only
// deactivated. Stats split into a current-division window (reset on every
// division change, drives promotion/demotion), career totals, and a bounded
// rating history log. All mutation goes through methods holding the entity's
// own lock; there is no global roster lock around per-competitor updates.
package competitor

import (
	"sync"
	"time"

	"github.com/hupe1980/agentarena/internal/util"
)

// StartingRating is the rating every new competitor begins with.
const StartingRating = 1200.0

// maxRatingHistory bounds the per-competitor rating log; oldest entries are
// dropped first.
const maxRatingHistory = 200

// RatingEntry records one rating change, one entry per resolved match.
type RatingEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Rating         float64   `json:"rating"`
	MatchID        string    `json:"match_id"`
	OpponentID     string    `json:"opponent_id"`
	OpponentRating float64   `json:"opponent_rating"` // Opponent's pre-match rating
	Result         string    `json:"result"`          // "win", "loss" or "draw"
	Delta          float64   `json:"delta"`
}

// DivisionStats is the performance window within a single division. It is
// archived and reset whenever the competitor changes division.
type DivisionStats struct {
	Matches    int       `json:"matches"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Draws      int       `json:"draws"`
	Streak     int       `json:"streak"` // positive = wins, negative = losses
	BestStreak int       `json:"best_streak"`
	EnteredAt  time.Time `json:"entered_at"`
}

// WinRate returns the win percentage (0-100) for this window.
func (s DivisionStats) WinRate() float64 {
	if s.Matches == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Matches) * 100
}

// CareerStats accumulates lifetime totals across all divisions.
type CareerStats struct {
	Matches    int `json:"matches"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Draws      int `json:"draws"`
	Promotions int `json:"promotions"`
	Demotions  int `json:"demotions"`
}

// Stats is the full statistical record of a competitor.
type Stats struct {
	Rating         float64                  `json:"rating"`
	StartingRating float64                  `json:"starting_rating"`
	Window         DivisionStats            `json:"window"` // current-division performance
	Career         CareerStats              `json:"career"`
	History        []RatingEntry            `json:"history"`
	PastDivisions  map[string]DivisionStats `json:"past_divisions"`

	// Oracle failure tracking; drives deactivation.
	GenerationAttempts int `json:"generation_attempts"`
	GenerationFailures int `json:"generation_failures"`
}

// DivisionChange records one promotion or demotion.
type DivisionChange struct {
	From      Division  `json:"from"`
	To        Division  `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Promotion bool      `json:"promotion"`
}

// Competitor is an autonomous participant with a rating and a division.
// Safe for concurrent use; every mutator takes the entity lock.
type Competitor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ModelRef string `json:"model_ref"` // which oracle model backs this competitor

	// CanJudge tags the competitor as eligible to sit on judge panels.
	CanJudge bool `json:"can_judge"`

	mu       sync.Mutex
	division Division
	active   bool
	stats    Stats
	changes  []DivisionChange
}

// New creates an active Novice competitor with the starting rating.
func New(name, modelRef string) *Competitor {
	return &Competitor{
		ID:       util.NewID(),
		Name:     name,
		ModelRef: modelRef,
		division: DivisionNovice,
		active:   true,
		stats: Stats{
			Rating:         StartingRating,
			StartingRating: StartingRating,
			Window:         DivisionStats{EnteredAt: time.Now().UTC()},
			PastDivisions:  map[string]DivisionStats{},
		},
	}
}

// Division returns the competitor's current tier.
func (c *Competitor) Division() Division {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.division
}

// Active reports whether the competitor is eligible for pairing.
func (c *Competitor) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Rating returns the current global rating.
func (c *Competitor) Rating() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Rating
}

// Stats returns a copy of the full statistical record.
func (c *Competitor) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.History = append([]RatingEntry(nil), c.stats.History...)
	s.PastDivisions = make(map[string]DivisionStats, len(c.stats.PastDivisions))
	for k, v := range c.stats.PastDivisions {
		s.PastDivisions[k] = v
	}
	return s
}

// Changes returns a copy of the division change history.
func (c *Competitor) Changes() []DivisionChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DivisionChange(nil), c.changes...)
}

// ApplyResult records a resolved match: updates the rating, appends the
// rating history entry and advances window and career counters. The streak
// follows the ladder convention: a win from a losing streak restarts at +1,
// a loss from a winning streak restarts at -1, a draw resets to zero.
func (c *Competitor) ApplyResult(entry RatingEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Rating = entry.Rating
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	c.stats.History = append(c.stats.History, entry)
	if len(c.stats.History) > maxRatingHistory {
		c.stats.History = c.stats.History[len(c.stats.History)-maxRatingHistory:]
	}

	c.stats.Window.Matches++
	c.stats.Career.Matches++
	switch entry.Result {
	case "win":
		c.stats.Window.Wins++
		c.stats.Career.Wins++
		c.stats.Window.Streak = max(1, c.stats.Window.Streak+1)
		if c.stats.Window.Streak > c.stats.Window.BestStreak {
			c.stats.Window.BestStreak = c.stats.Window.Streak
		}
	case "loss":
		c.stats.Window.Losses++
		c.stats.Career.Losses++
		c.stats.Window.Streak = min(-1, c.stats.Window.Streak-1)
	default:
		c.stats.Window.Draws++
		c.stats.Career.Draws++
		c.stats.Window.Streak = 0
	}
}

// ChangeDivision moves the competitor one tier, archiving and resetting the
// current-division window.
func (c *Competitor) ChangeDivision(to Division, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.division
	if from == to {
		return
	}

	if c.stats.Window.Matches > 0 {
		c.stats.PastDivisions[from.String()] = c.stats.Window
	}
	c.stats.Window = DivisionStats{EnteredAt: time.Now().UTC()}

	promotion := to > from
	if promotion {
		c.stats.Career.Promotions++
	} else {
		c.stats.Career.Demotions++
	}

	c.division = to
	c.changes = append(c.changes, DivisionChange{
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Promotion: promotion,
	})
}

// Deactivate removes the competitor from future pairing.
func (c *Competitor) Deactivate(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.changes = append(c.changes, DivisionChange{
		From:      c.division,
		To:        c.division,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
	})
}

// RecordGeneration tracks one oracle generation attempt and returns the
// cumulative failure rate afterwards.
func (c *Competitor) RecordGeneration(failed bool) (rate float64, attempts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.GenerationAttempts++
	if failed {
		c.stats.GenerationFailures++
	}
	return float64(c.stats.GenerationFailures) / float64(c.stats.GenerationAttempts), c.stats.GenerationAttempts
}
