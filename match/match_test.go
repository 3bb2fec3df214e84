package match

import (
	"fmt"
	"testing"

	"github.com/hupe1980/agentarena/challenge"
	"github.com/stretchr/testify/assert"
)

func newTestMatch() *Match {
	return New(TypeStandardDuel, "a", "b", challenge.Challenge{
		Type:       challenge.TypeReasoning,
		Difficulty: 2,
		Prompt:     "Why is the sky blue?",
	})
}

func TestStart_Idempotent(t *testing.T) {
	m := newTestMatch()
	assert.Equal(t, StatusPending, m.Status())
	assert.NoError(t, m.Start())
	assert.Equal(t, StatusInProgress, m.Status())
	assert.NoError(t, m.Start())
	assert.Equal(t, StatusInProgress, m.Status())
}

func TestStart_AfterTerminalFails(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.Cancel("test"))
	assert.ErrorIs(t, m.Start(), ErrInvalidTransition)
}

func TestSubmitResponse_RequiresInProgress(t *testing.T) {
	m := newTestMatch()
	assert.ErrorIs(t, m.SubmitResponse("a", "hello"), ErrInvalidTransition)
	assert.NoError(t, m.Start())
	assert.NoError(t, m.SubmitResponse("a", "hello"))
}

func TestSubmitResponse_RejectsStrangers(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.ErrorIs(t, m.SubmitResponse("intruder", "hi"), ErrNotParticipant)
}

func TestSubmitPartial_ReplacesInPlace(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())

	assert.NoError(t, m.SubmitPartial("a", "Ray"))
	assert.NoError(t, m.SubmitPartial("a", "Rayleigh scat"))
	assert.NoError(t, m.SubmitResponse("a", "Rayleigh scattering."))

	tr := m.Transcript()
	assert.Len(t, tr, 1)
	assert.Equal(t, "Rayleigh scattering.", tr[0].Text)
	assert.False(t, tr[0].Streaming)
}

func TestSubmitPartial_InterleavedSides(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())

	assert.NoError(t, m.SubmitResponse("a", "first"))
	assert.NoError(t, m.SubmitPartial("b", "sec"))
	assert.NoError(t, m.SubmitResponse("b", "second"))

	tr := m.Transcript()
	assert.Len(t, tr, 2)
	assert.Equal(t, "a", tr[0].CompetitorID)
	assert.Equal(t, "b", tr[1].CompetitorID)
}

func TestSubmitPartial_ConcurrentStreamsStayOneEntryPerSide(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())

	// Duels stream both sides at once, so partials arrive interleaved.
	for i := 0; i < 50; i++ {
		assert.NoError(t, m.SubmitPartial("a", fmt.Sprintf("a chunk %d", i)))
		assert.NoError(t, m.SubmitPartial("b", fmt.Sprintf("b chunk %d", i)))
	}
	assert.NoError(t, m.SubmitResponse("a", "a final"))
	assert.NoError(t, m.SubmitResponse("b", "b final"))

	tr := m.Transcript()
	assert.Len(t, tr, 2)
	assert.Equal(t, "a", tr[0].CompetitorID)
	assert.Equal(t, "a final", tr[0].Text)
	assert.False(t, tr[0].Streaming)
	assert.Equal(t, "b", tr[1].CompetitorID)
	assert.Equal(t, "b final", tr[1].Text)
	assert.False(t, tr[1].Streaming)
}

func TestSubmitPartial_FinishedTurnStartsNewEntry(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())

	assert.NoError(t, m.SubmitResponse("a", "opening"))
	assert.NoError(t, m.SubmitResponse("b", "rebuttal"))
	assert.NoError(t, m.SubmitPartial("a", "clos"))
	assert.NoError(t, m.SubmitResponse("a", "closing"))

	tr := m.Transcript()
	assert.Len(t, tr, 3)
	assert.Equal(t, "opening", tr[0].Text)
	assert.Equal(t, "closing", tr[2].Text)
}

func TestResponseOf_SkipsStreaming(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.SubmitPartial("a", "part"))

	_, ok := m.ResponseOf("a")
	assert.False(t, ok)

	assert.NoError(t, m.SubmitResponse("a", "full"))
	text, ok := m.ResponseOf("a")
	assert.True(t, ok)
	assert.Equal(t, "full", text)
}

func TestComplete_DerivesResult(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.AwaitJudgment())
	assert.NoError(t, m.Complete("b", Scores{SideA: 4, SideB: 7}))

	result, winner, scores := m.Outcome()
	assert.Equal(t, StatusCompleted, m.Status())
	assert.Equal(t, ResultWinB, result)
	assert.Equal(t, "b", winner)
	assert.Equal(t, 7.0, scores.SideB)
}

func TestComplete_DrawOnEmptyWinner(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.Complete("", Scores{SideA: 5, SideB: 5}))

	result, winner, _ := m.Outcome()
	assert.Equal(t, ResultDraw, result)
	assert.Empty(t, winner)
}

func TestComplete_Idempotent(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.Complete("a", Scores{SideA: 8, SideB: 3}))
	// Same winner again is a no-op.
	assert.NoError(t, m.Complete("a", Scores{SideA: 1, SideB: 9}))
	// A different winner is rejected.
	assert.ErrorIs(t, m.Complete("b", Scores{}), ErrInvalidTransition)

	_, _, scores := m.Outcome()
	assert.Equal(t, 8.0, scores.SideA)
}

func TestComplete_RejectsStrangerWinner(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.ErrorIs(t, m.Complete("intruder", Scores{}), ErrNotParticipant)
	assert.Equal(t, StatusInProgress, m.Status())
}

func TestCancel_And_Fail_AreTerminal(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.Cancel("timeout"))
	assert.Equal(t, StatusCancelled, m.Status())
	assert.Equal(t, "timeout", m.Reason())
	assert.ErrorIs(t, m.Fail("late"), ErrInvalidTransition)
	assert.ErrorIs(t, m.Cancel("again"), ErrInvalidTransition)
	assert.False(t, m.CompletedAt().IsZero())
}

func TestSnapshot_Terminal(t *testing.T) {
	m := newTestMatch()
	assert.NoError(t, m.Start())
	assert.NoError(t, m.SubmitResponse("a", "answer"))
	assert.NoError(t, m.Complete("a", Scores{SideA: 7, SideB: 5}))

	snap := m.Snapshot()
	assert.True(t, snap.Status.Terminal())
	assert.Equal(t, "a", snap.Winner)
	assert.Equal(t, ResultWinA, snap.Result)
	assert.Len(t, snap.Transcript, 1)
}

func TestOpponent(t *testing.T) {
	m := newTestMatch()
	op, ok := m.Opponent("a")
	assert.True(t, ok)
	assert.Equal(t, "b", op)
	_, ok = m.Opponent("x")
	assert.False(t, ok)
}
