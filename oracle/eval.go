package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildEvaluationPrompt renders an EvaluationRequest into the judging prompt
// provider adapters send to their underlying model. The model is instructed
// to reply with a single JSON object that ParseScorecard understands.
func BuildEvaluationPrompt(req EvaluationRequest) string {
	var sb strings.Builder
	sb.WriteString("You are an impartial judge in a competitive arena. Evaluate the two sides of the following match fairly and objectively.\n\n")
	sb.WriteString("MATCH TRANSCRIPT:\n")
	sb.WriteString(req.Transcript)
	sb.WriteString("\n\nSCORING CRITERIA (0-10 each):\n")
	for _, c := range req.Rubric {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	if req.Answer != "" {
		sb.WriteString("\nREFERENCE ANSWER:\n")
		sb.WriteString(req.Answer)
		sb.WriteString("\nPrioritize correctness against the reference answer where applicable.\n")
	}
	sb.WriteString("\nReply with a single JSON object and nothing else:\n")
	sb.WriteString(`{"side_a_scores": {"<criterion>": <0-10>, ...}, "side_b_scores": {"<criterion>": <0-10>, ...}, "winner": "side_a"|"side_b"|"draw", "confidence": <0-1>, "reasoning": "<short explanation>"}`)
	return sb.String()
}

// ParseScorecard decodes a model's JSON verdict into a Scorecard. Markdown
// code fences around the object are tolerated; scores are clamped to 0-10 and
// confidence to 0-1. Unrecognized winner values degrade to a draw.
func ParseScorecard(text string) (*Scorecard, error) {
	trimmed := strings.TrimSpace(text)
	if i := strings.Index(trimmed, "{"); i > 0 {
		trimmed = trimmed[i:]
	}
	if i := strings.LastIndex(trimmed, "}"); i >= 0 {
		trimmed = trimmed[:i+1]
	}

	var sc Scorecard
	if err := json.Unmarshal([]byte(trimmed), &sc); err != nil {
		return nil, fmt.Errorf("malformed scorecard: %w", err)
	}

	for k, v := range sc.SideAScores {
		sc.SideAScores[k] = clamp(v, 0, 10)
	}
	for k, v := range sc.SideBScores {
		sc.SideBScores[k] = clamp(v, 0, 10)
	}
	sc.Confidence = clamp(sc.Confidence, 0, 1)

	switch sc.Winner {
	case RecommendSideA, RecommendSideB, RecommendDraw:
	default:
		sc.Winner = RecommendDraw
	}

	return &sc, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
