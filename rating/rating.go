// Package rating implements the ladder arithmetic: ELO rating updates and
// the promotion and demotion rules that move competitors between divisions.
// Everything here is pure; the arena applies the decisions.
package rating

import "math"

// KFactor is the ELO adjustment factor for all matches.
const KFactor = 32

// Outcome is the match result for the first of the two rated sides.
type Outcome float64

const (
	Win  Outcome = 1.0
	Draw Outcome = 0.5
	Loss Outcome = 0.0
)

// Expected returns the expected score of a player rated r1 against r2.
func Expected(r1, r2 float64) float64 {
	return 1 / (1 + math.Pow(10, (r2-r1)/400))
}

// Delta returns the rating change for a player rated r1 scoring the given
// outcome against r2. The opponent's delta is the exact negation.
func Delta(r1, r2 float64, o Outcome) float64 {
	return KFactor * (float64(o) - Expected(r1, r2))
}

// Update returns the new ratings of both sides after a match, from side
// one's perspective.
func Update(r1, r2 float64, o Outcome) (new1, new2 float64) {
	d := Delta(r1, r2, o)
	return r1 + d, r2 - d
}
