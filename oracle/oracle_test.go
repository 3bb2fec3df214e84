package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect_NonStreaming(t *testing.T) {
	m := NewMockOracle("m", "mock")
	m.AddResponse("hello", "world")

	res := Collect(context.Background(), m, Request{Prompt: "hello"}, nil)
	assert.True(t, res.Ok())
	assert.Equal(t, "world", res.Text)
	assert.GreaterOrEqual(t, res.Elapsed.Nanoseconds(), int64(0))
}

func TestCollect_StreamingAccumulatesPartials(t *testing.T) {
	m := NewMockOracle("m", "mock")
	m.AddResponse("q", "abc")

	var seen []string
	res := Collect(context.Background(), m, Request{Prompt: "q", Stream: true}, func(soFar string) {
		seen = append(seen, soFar)
	})
	assert.True(t, res.Ok())
	assert.Equal(t, "abc", res.Text)
	assert.Equal(t, []string{"a", "ab", "abc"}, seen)
}

func TestCollect_FinalChunkWins(t *testing.T) {
	// A provider that emits partials and then the authoritative completion.
	m := &finalOnlyModel{partials: []string{"ab", "cd"}, final: "full text"}
	res := Collect(context.Background(), m, Request{Stream: true}, nil)
	assert.True(t, res.Ok())
	assert.Equal(t, "full text", res.Text)
}

func TestCollect_GenerationError(t *testing.T) {
	m := NewMockOracle("m", "mock")
	m.FailGeneration(true)

	res := Collect(context.Background(), m, Request{Prompt: "q"}, nil)
	assert.False(t, res.Ok())
	assert.Error(t, res.Err)
	assert.Empty(t, res.Text)
}

func TestCollect_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &blockingModel{}
	res := Collect(ctx, m, Request{Prompt: "q"}, nil)
	assert.False(t, res.Ok())
	assert.ErrorIs(t, res.Err, context.Canceled)
}

type finalOnlyModel struct {
	partials []string
	final    string
}

func (m *finalOnlyModel) Generate(_ context.Context, _ Request) (<-chan Chunk, <-chan error) {
	chunkCh := make(chan Chunk, len(m.partials)+1)
	errCh := make(chan error, 1)
	for _, p := range m.partials {
		chunkCh <- Chunk{Text: p, Partial: true}
	}
	chunkCh <- Chunk{Text: m.final, FinishReason: "stop"}
	close(chunkCh)
	close(errCh)
	return chunkCh, errCh
}

func (m *finalOnlyModel) Info() Info { return Info{Name: "final-only", Provider: "test"} }

type blockingModel struct{}

func (m *blockingModel) Generate(_ context.Context, _ Request) (<-chan Chunk, <-chan error) {
	return make(chan Chunk), make(chan error)
}

func (m *blockingModel) Info() Info { return Info{Name: "blocking", Provider: "test"} }

func TestParseScorecard_Valid(t *testing.T) {
	sc, err := ParseScorecard(`{"side_a_scores": {"clarity": 8}, "side_b_scores": {"clarity": 6}, "winner": "side_a", "confidence": 0.8, "reasoning": "clearer"}`)
	assert.NoError(t, err)
	assert.Equal(t, RecommendSideA, sc.Winner)
	assert.InDelta(t, 8.0, sc.TotalA(), 1e-9)
	assert.InDelta(t, 6.0, sc.TotalB(), 1e-9)
}

func TestParseScorecard_ToleratesSurroundingText(t *testing.T) {
	sc, err := ParseScorecard("Sure, here is my verdict:\n```json\n" +
		`{"side_a_scores": {"depth": 5}, "side_b_scores": {"depth": 7}, "winner": "side_b", "confidence": 0.6}` +
		"\n```")
	assert.NoError(t, err)
	assert.Equal(t, RecommendSideB, sc.Winner)
}

func TestParseScorecard_ClampsAndDefaults(t *testing.T) {
	sc, err := ParseScorecard(`{"side_a_scores": {"depth": 15}, "side_b_scores": {"depth": -2}, "winner": "side_c", "confidence": 3}`)
	assert.NoError(t, err)
	assert.Equal(t, 10.0, sc.SideAScores["depth"])
	assert.Equal(t, 0.0, sc.SideBScores["depth"])
	assert.Equal(t, RecommendDraw, sc.Winner)
	assert.Equal(t, 1.0, sc.Confidence)
}

func TestParseScorecard_Malformed(t *testing.T) {
	_, err := ParseScorecard("not json at all")
	assert.Error(t, err)
}

func TestMockOracle_EvaluateQueue(t *testing.T) {
	m := NewMockOracle("m", "mock")
	m.AddScorecard(&Scorecard{Winner: RecommendSideA})

	sc, err := m.Evaluate(context.Background(), EvaluationRequest{Rubric: []string{"clarity"}})
	assert.NoError(t, err)
	assert.Equal(t, RecommendSideA, sc.Winner)

	// Queue exhausted yields an even draw.
	sc, err = m.Evaluate(context.Background(), EvaluationRequest{Rubric: []string{"clarity"}})
	assert.NoError(t, err)
	assert.Equal(t, RecommendDraw, sc.Winner)
	assert.InDelta(t, 5.0, sc.TotalA(), 1e-9)
}

func TestMockOracle_FailEvaluation(t *testing.T) {
	m := NewMockOracle("m", "mock")
	m.FailEvaluation(true)
	_, err := m.Evaluate(context.Background(), EvaluationRequest{})
	assert.Error(t, err)

	var res GenerationResult
	m.FailGeneration(true)
	res = Collect(context.Background(), m, Request{Prompt: "x"}, nil)
	assert.False(t, res.Ok())
	assert.False(t, errors.Is(res.Err, context.Canceled))
}
