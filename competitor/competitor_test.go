package competitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func applyN(c *Competitor, result string, n int) {
	for i := 0; i < n; i++ {
		c.ApplyResult(RatingEntry{
			Rating:  c.Rating() + 10,
			MatchID: fmt.Sprintf("m-%s-%d", result, i),
			Result:  result,
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("alpha", "mock")
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, DivisionNovice, c.Division())
	assert.True(t, c.Active())
	assert.Equal(t, StartingRating, c.Rating())
}

func TestApplyResult_StreakArithmetic(t *testing.T) {
	c := New("alpha", "mock")

	applyN(c, "loss", 2)
	assert.Equal(t, -2, c.Stats().Window.Streak)

	// A win after a losing streak restarts at +1.
	applyN(c, "win", 1)
	assert.Equal(t, 1, c.Stats().Window.Streak)

	applyN(c, "win", 2)
	assert.Equal(t, 3, c.Stats().Window.Streak)
	assert.Equal(t, 3, c.Stats().Window.BestStreak)

	// A loss after a winning streak restarts at -1.
	applyN(c, "loss", 1)
	assert.Equal(t, -1, c.Stats().Window.Streak)

	applyN(c, "draw", 1)
	assert.Equal(t, 0, c.Stats().Window.Streak)
	assert.Equal(t, 3, c.Stats().Window.BestStreak)
}

func TestApplyResult_Counters(t *testing.T) {
	c := New("alpha", "mock")
	applyN(c, "win", 3)
	applyN(c, "loss", 2)
	applyN(c, "draw", 1)

	s := c.Stats()
	assert.Equal(t, 6, s.Window.Matches)
	assert.Equal(t, 3, s.Window.Wins)
	assert.Equal(t, 2, s.Window.Losses)
	assert.Equal(t, 1, s.Window.Draws)
	assert.Equal(t, 6, s.Career.Matches)
	assert.InDelta(t, 50.0, s.Window.WinRate(), 1e-9)
	assert.Len(t, s.History, 6)
}

func TestChangeDivision_ArchivesAndResetsWindow(t *testing.T) {
	c := New("alpha", "mock")
	applyN(c, "win", 4)
	ratingBefore := c.Rating()

	c.ChangeDivision(DivisionExpert, "promotion")

	s := c.Stats()
	assert.Equal(t, DivisionExpert, c.Division())
	assert.Equal(t, 0, s.Window.Matches)
	assert.Equal(t, 0, s.Window.Streak)
	assert.Equal(t, 4, s.PastDivisions["novice"].Matches)
	assert.Equal(t, 1, s.Career.Promotions)
	// Rating survives the division change.
	assert.Equal(t, ratingBefore, c.Rating())

	changes := c.Changes()
	assert.Len(t, changes, 1)
	assert.True(t, changes[0].Promotion)
	assert.Equal(t, DivisionNovice, changes[0].From)
	assert.Equal(t, DivisionExpert, changes[0].To)
}

func TestChangeDivision_SameDivisionNoOp(t *testing.T) {
	c := New("alpha", "mock")
	c.ChangeDivision(DivisionNovice, "noop")
	assert.Empty(t, c.Changes())
}

func TestDeactivate(t *testing.T) {
	c := New("alpha", "mock")
	c.Deactivate("unreliable")
	assert.False(t, c.Active())
}

func TestRecordGeneration_FailureRate(t *testing.T) {
	c := New("alpha", "mock")
	c.RecordGeneration(false)
	c.RecordGeneration(true)
	rate, attempts := c.RecordGeneration(true)
	assert.Equal(t, 3, attempts)
	assert.InDelta(t, 2.0/3.0, rate, 1e-9)
}

func TestDivision_ParseAndBounds(t *testing.T) {
	d, ok := ParseDivision("master")
	assert.True(t, ok)
	assert.Equal(t, DivisionMaster, d)

	_, ok = ParseDivision("grandmaster")
	assert.False(t, ok)

	assert.Equal(t, DivisionChampion, DivisionChampion.Above())
	assert.Equal(t, DivisionNovice, DivisionNovice.Below())
	assert.Equal(t, DivisionMaster, DivisionExpert.Above())
}

func TestRoster_AddAndLookup(t *testing.T) {
	r := NewRoster()
	a := New("alpha", "mock")
	assert.NoError(t, r.Add(a))
	assert.Error(t, r.Add(New("alpha", "mock")))

	got, ok := r.Get(a.ID)
	assert.True(t, ok)
	assert.Same(t, a, got)

	got, ok = r.GetByName("alpha")
	assert.True(t, ok)
	assert.Same(t, a, got)
}

func TestRoster_ActiveInAndChampion(t *testing.T) {
	r := NewRoster()
	a := New("alpha", "mock")
	b := New("beta", "mock")
	c := New("gamma", "mock")
	for _, x := range []*Competitor{a, b, c} {
		assert.NoError(t, r.Add(x))
	}
	b.ChangeDivision(DivisionChampion, "test")
	c.Deactivate("test")

	assert.Len(t, r.Active(), 2)
	assert.Len(t, r.ActiveIn(DivisionNovice), 1)
	assert.Same(t, b, r.Champion())
}

func TestRoster_TopOf_SortedByRating(t *testing.T) {
	r := NewRoster()
	low := New("low", "mock")
	high := New("high", "mock")
	assert.NoError(t, r.Add(low))
	assert.NoError(t, r.Add(high))
	high.ApplyResult(RatingEntry{Rating: 1400, Result: "win"})

	top := r.TopOf(DivisionNovice)
	assert.Len(t, top, 2)
	assert.Same(t, high, top[0])
}

func TestRoster_Judges_ExcludesParticipantsAndNonJudges(t *testing.T) {
	r := NewRoster()
	j1 := New("judge1", "mock")
	j1.CanJudge = true
	j2 := New("judge2", "mock")
	j2.CanJudge = true
	player := New("player", "mock")
	for _, x := range []*Competitor{j1, j2, player} {
		assert.NoError(t, r.Add(x))
	}

	judges := r.Judges(DivisionNovice, j2.ID, player.ID)
	assert.Len(t, judges, 1)
	assert.Same(t, j1, judges[0])
}

func TestRoster_Judges_FiltersByDivision(t *testing.T) {
	r := NewRoster()
	novice := New("novice-judge", "mock")
	novice.CanJudge = true
	expert := New("expert-judge", "mock")
	expert.CanJudge = true
	expert.ChangeDivision(DivisionExpert, "seeded")
	for _, x := range []*Competitor{novice, expert} {
		assert.NoError(t, r.Add(x))
	}

	judges := r.Judges(DivisionExpert)
	assert.Len(t, judges, 1)
	assert.Same(t, expert, judges[0])

	assert.Len(t, r.Judges(DivisionNovice), 2)
}
