package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentarena/competitor"
	"github.com/hupe1980/agentarena/internal/util"
	"github.com/hupe1980/agentarena/oracle"
)

// ForDivision returns the difficulty window used when drawing challenges for
// a division. Lower tiers see easier problems, upper tiers never see
// trivial ones.
func ForDivision(d competitor.Division) Filter {
	switch d {
	case competitor.DivisionNovice:
		return Filter{MinDifficulty: 1, MaxDifficulty: 2}
	case competitor.DivisionExpert:
		return Filter{MinDifficulty: 2, MaxDifficulty: 3}
	default:
		return Filter{MinDifficulty: 3, MaxDifficulty: 5}
	}
}

// Generator produces fresh challenges from an oracle model, falling back to
// a static pool when generation fails.
type Generator struct {
	model    oracle.Model
	fallback Source
}

// NewGenerator creates an oracle-backed challenge source. The fallback may
// be nil, in which case generation errors surface to the caller.
func NewGenerator(model oracle.Model, fallback Source) *Generator {
	return &Generator{model: model, fallback: fallback}
}

// Random implements Source by generating a challenge matching the filter.
func (g *Generator) Random(ctx context.Context, f Filter) (Challenge, error) {
	c, err := g.Generate(ctx, f.Type, targetDifficulty(f))
	if err != nil {
		if g.fallback != nil {
			return g.fallback.Random(ctx, f)
		}
		return Challenge{}, err
	}
	return c, nil
}

// targetDifficulty picks the difficulty to generate at from a filter
// window, preferring its upper bound.
func targetDifficulty(f Filter) int {
	switch {
	case f.MaxDifficulty > 0:
		return f.MaxDifficulty
	case f.MinDifficulty > 0:
		return f.MinDifficulty
	default:
		return 3
	}
}

// Generate asks the model for a single challenge of the given type and
// difficulty.
func (g *Generator) Generate(ctx context.Context, t Type, difficulty int) (Challenge, error) {
	if t == "" {
		t = TypeReasoning
	}
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 5 {
		difficulty = 5
	}

	res := oracle.Collect(ctx, g.model, oracle.Request{
		System: "You design evaluation challenges for language models. Reply with JSON only.",
		Prompt: generatePrompt(t, difficulty),
	}, nil)
	if !res.Ok() {
		return Challenge{}, fmt.Errorf("challenge: generate: %w", res.Err)
	}

	c, err := parseGenerated(res.Text)
	if err != nil {
		return Challenge{}, fmt.Errorf("challenge: generate: %w", err)
	}
	c.ID = util.NewID()
	c.Type = t
	c.Difficulty = difficulty
	return c, nil
}

func generatePrompt(t Type, difficulty int) string {
	return fmt.Sprintf(`Create one %s challenge at difficulty %d on a 1-5 scale.

Reply with a JSON object:
{"prompt": "the challenge text", "answer": "reference answer or empty string", "rubric": ["judging criterion", ...]}`, t, difficulty)
}

func parseGenerated(text string) (Challenge, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Challenge{}, fmt.Errorf("no JSON object in response")
	}
	var raw struct {
		Prompt string   `json:"prompt"`
		Answer string   `json:"answer"`
		Rubric []string `json:"rubric"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Challenge{}, err
	}
	if strings.TrimSpace(raw.Prompt) == "" {
		return Challenge{}, fmt.Errorf("generated challenge has empty prompt")
	}
	return Challenge{Prompt: raw.Prompt, Answer: raw.Answer, Rubric: raw.Rubric}, nil
}
