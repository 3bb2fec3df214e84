package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Request captures the normalized generation input produced by the arena.
type Request struct {
	System      string  `json:"system,omitempty"` // Optional system instructions
	Prompt      string  `json:"prompt"`           // Challenge or debate-turn prompt
	Stream      bool    `json:"stream,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// Chunk is a (partial or final) piece emitted by a streaming model.
type Chunk struct {
	Text         string `json:"text"`
	Partial      bool   `json:"partial"` // Indicates if this is a partial chunk
	FinishReason string `json:"finish_reason"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to drive response generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Recommendation is a judge's recommended outcome relative to the two sides
// of a match.
type Recommendation string

const (
	// RecommendSideA recommends the first participant as winner.
	RecommendSideA Recommendation = "side_a"
	// RecommendSideB recommends the second participant as winner.
	RecommendSideB Recommendation = "side_b"
	// RecommendDraw recommends no winner.
	RecommendDraw Recommendation = "draw"
)

// EvaluationRequest carries a rendered match transcript plus the rubric the
// judge scores against.
type EvaluationRequest struct {
	Transcript string   `json:"transcript"` // Rendered responses or debate turns
	Rubric     []string `json:"rubric"`     // Criteria names, scored 0-10 each
	Answer     string   `json:"answer,omitempty"`
}

// Scorecard is one judge's raw verdict on a match: per-criterion scores for
// both sides, a recommended winner and a confidence. Consumed by the judge
// panel to build consensus; not stored beyond the match summary.
type Scorecard struct {
	SideAScores map[string]float64 `json:"side_a_scores"`
	SideBScores map[string]float64 `json:"side_b_scores"`
	Winner      Recommendation     `json:"winner"`
	Confidence  float64            `json:"confidence"` // 0-1
	Reasoning   string             `json:"reasoning"`
}

// TotalA sums side A's criterion scores.
func (s *Scorecard) TotalA() float64 {
	var t float64
	for _, v := range s.SideAScores {
		t += v
	}
	return t
}

// TotalB sums side B's criterion scores.
func (s *Scorecard) TotalB() float64 {
	var t float64
	for _, v := range s.SideBScores {
		t += v
	}
	return t
}

// Evaluator is the judging half of the oracle: it scores a completed match
// transcript against a rubric. Opaque, non-deterministic, fallible.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*Scorecard, error)
}

// Oracle combines generation and evaluation. Provider adapters implement
// both halves over a single underlying client.
type Oracle interface {
	Model
	Evaluator
}

// MockOracle is a lightweight in-memory Oracle useful for tests & examples.
type MockOracle struct {
	info       Info
	responses  map[string]string
	mu         sync.Mutex
	scorecards []*Scorecard
	scoreIdx   int
	failGen    bool
	failEval   bool
}

// NewMockOracle constructs a MockOracle.
func NewMockOracle(name, provider string) *MockOracle {
	return &MockOracle{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockOracle) AddResponse(prompt, response string) { m.responses[prompt] = response }

// AddScorecard queues a canned scorecard returned by successive Evaluate calls.
func (m *MockOracle) AddScorecard(sc *Scorecard) { m.scorecards = append(m.scorecards, sc) }

// FailGeneration makes Generate return an error instead of chunks.
func (m *MockOracle) FailGeneration(fail bool) { m.failGen = fail }

// FailEvaluation makes Evaluate return an error.
func (m *MockOracle) FailEvaluation(fail bool) { m.failEval = fail }

// Generate implements Model; emits optional streaming char chunks then a final chunk.
func (m *MockOracle) Generate(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunkCh := make(chan Chunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)
		if m.failGen {
			errCh <- fmt.Errorf("mock generation failure")
			return
		}
		full := m.responses[req.Prompt]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", req.Prompt)
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case chunkCh <- Chunk{Text: string(r), Partial: true}:
				}
			}
		}
		chunkCh <- Chunk{Text: full, FinishReason: "stop"}
	}()
	return chunkCh, errCh
}

// Evaluate implements Evaluator returning queued scorecards in order. When the
// queue is exhausted it returns an even draw.
func (m *MockOracle) Evaluate(_ context.Context, req EvaluationRequest) (*Scorecard, error) {
	if m.failEval {
		return nil, fmt.Errorf("mock evaluation failure")
	}
	// A panel may share one mock across several seats and evaluates
	// concurrently.
	m.mu.Lock()
	if m.scoreIdx < len(m.scorecards) {
		sc := m.scorecards[m.scoreIdx]
		m.scoreIdx++
		m.mu.Unlock()
		return sc, nil
	}
	m.mu.Unlock()
	even := map[string]float64{}
	for _, c := range req.Rubric {
		even[c] = 5.0
	}
	return &Scorecard{
		SideAScores: even,
		SideBScores: even,
		Winner:      RecommendDraw,
		Confidence:  0.5,
		Reasoning:   "mock even verdict",
	}, nil
}

// Info implements Model interface.
func (m *MockOracle) Info() Info { return m.info }
