// Package challenge provides the problems competitors face: a typed,
// difficulty-rated prompt with an optional reference answer and rubric
// hints. Challenges come from a Source, either a static pool or an
// oracle-backed generator.
package challenge

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/hupe1980/agentarena/internal/util"
)

// Type classifies what a challenge asks for.
type Type string

const (
	TypeReasoning Type = "reasoning"
	TypeCreative  Type = "creative"
	TypeKnowledge Type = "knowledge"
	TypeCoding    Type = "coding"
	TypeDebate    Type = "debate"
)

// Challenge is a single problem posed to both sides of a match.
type Challenge struct {
	ID         string   `json:"id"`
	Type       Type     `json:"type"`
	Difficulty int      `json:"difficulty"` // 1 (trivial) to 5 (champion-grade)
	Prompt     string   `json:"prompt"`
	Answer     string   `json:"answer,omitempty"` // reference answer, if known
	Rubric     []string `json:"rubric,omitempty"` // judging hints
}

// Filter narrows challenge selection.
type Filter struct {
	Type          Type // zero value matches any type
	MinDifficulty int
	MaxDifficulty int
}

// Matches reports whether the challenge satisfies the filter.
func (f Filter) Matches(c Challenge) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.MinDifficulty > 0 && c.Difficulty < f.MinDifficulty {
		return false
	}
	if f.MaxDifficulty > 0 && c.Difficulty > f.MaxDifficulty {
		return false
	}
	return true
}

// ErrNoChallenge is returned when a source has nothing matching the filter.
var ErrNoChallenge = errors.New("challenge: no challenge matches filter")

// Source supplies challenges for matches.
type Source interface {
	// Random picks a challenge matching the filter.
	Random(ctx context.Context, f Filter) (Challenge, error)
}

// Pool is a static, thread-safe challenge source.
type Pool struct {
	mu         sync.RWMutex
	challenges []Challenge
	rng        *rand.Rand
}

// NewPool builds a pool from the given challenges. A nil or empty slice is
// valid; Random then returns ErrNoChallenge.
func NewPool(challenges []Challenge, seed int64) *Pool {
	cs := make([]Challenge, len(challenges))
	copy(cs, challenges)
	for i := range cs {
		if cs[i].ID == "" {
			cs[i].ID = util.NewID()
		}
	}
	return &Pool{
		challenges: cs,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Add appends a challenge to the pool.
func (p *Pool) Add(c Challenge) Challenge {
	if c.ID == "" {
		c.ID = util.NewID()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.challenges = append(p.challenges, c)
	return c
}

// Random implements Source.
func (p *Pool) Random(_ context.Context, f Filter) (Challenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var candidates []int
	for i, c := range p.challenges {
		if f.Matches(c) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return Challenge{}, ErrNoChallenge
	}
	return p.challenges[candidates[p.rng.Intn(len(candidates))]], nil
}
