// Package match holds the Match aggregate: two competitors, a challenge, a
// transcript and a status machine that moves strictly forward to a terminal
// state. The aggregate is safe for concurrent use; executors stream partial
// responses into it while readers snapshot live state.
package match

import (
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/agentarena/challenge"
	"github.com/hupe1980/agentarena/internal/util"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusPending          Status = "pending"
	StatusInProgress       Status = "in_progress"
	StatusAwaitingJudgment Status = "awaiting_judgment"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusError            Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusError:
		return true
	}
	return false
}

// Type classifies what the match is for.
type Type string

const (
	TypeStandardDuel      Type = "standard_duel"
	TypeDebate            Type = "debate"
	TypeChampionChallenge Type = "champion_challenge"
	TypePromotion         Type = "promotion"
	TypeRelegation        Type = "relegation"
)

// Result is the outcome from side A's perspective.
type Result string

const (
	ResultWinA Result = "win_a"
	ResultWinB Result = "win_b"
	ResultDraw Result = "draw"
)

var (
	// ErrInvalidTransition is returned when a lifecycle method is called in
	// a state that does not allow it.
	ErrInvalidTransition = errors.New("match: invalid status transition")

	// ErrNotParticipant is returned when a response is submitted for a
	// competitor that is not in the match.
	ErrNotParticipant = errors.New("match: competitor is not a participant")
)

// Entry is one turn in the match transcript.
type Entry struct {
	CompetitorID string    `json:"competitor_id"`
	Text         string    `json:"text"`
	Streaming    bool      `json:"streaming"` // true while the turn is still being produced
	Timestamp    time.Time `json:"timestamp"`
}

// Scores carries the final per-side judged totals.
type Scores struct {
	SideA float64 `json:"side_a"`
	SideB float64 `json:"side_b"`
}

// Match is a single contest between two competitors.
type Match struct {
	ID        string              `json:"id"`
	Type      Type                `json:"type"`
	SideA     string              `json:"side_a"` // competitor id
	SideB     string              `json:"side_b"`
	Challenge challenge.Challenge `json:"challenge"`

	// Exchanges is the number of back-and-forth rounds for debates; zero
	// for single-response matches.
	Exchanges int `json:"exchanges,omitempty"`

	mu          sync.Mutex
	status      Status
	result      Result
	scores      Scores
	winner      string // competitor id, empty on draw
	reason      string // cancellation or error detail
	transcript  []Entry
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// New creates a pending match between two competitors.
func New(t Type, sideA, sideB string, ch challenge.Challenge) *Match {
	return &Match{
		ID:        util.NewID(),
		Type:      t,
		SideA:     sideA,
		SideB:     sideB,
		Challenge: ch,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
	}
}

// Status returns the current lifecycle state.
func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start moves the match to in_progress. Calling Start on a match that is
// already in progress is a no-op; starting a terminal or judging match is an
// error.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status {
	case StatusPending:
		m.status = StatusInProgress
		m.startedAt = time.Now().UTC()
		return nil
	case StatusInProgress:
		return nil
	default:
		return ErrInvalidTransition
	}
}

// SubmitResponse appends a finished turn to the transcript. If the
// competitor has an open streaming turn, it is finalized in place instead
// of appended.
func (m *Match) SubmitResponse(competitorID, text string) error {
	return m.submit(competitorID, text, false)
}

// SubmitPartial records an in-flight streaming turn. Consecutive partials
// from the same competitor replace each other so the transcript always holds
// one entry per turn.
func (m *Match) SubmitPartial(competitorID, textSoFar string) error {
	return m.submit(competitorID, textSoFar, true)
}

func (m *Match) submit(competitorID, text string, streaming bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusInProgress {
		return ErrInvalidTransition
	}
	if competitorID != m.SideA && competitorID != m.SideB {
		return ErrNotParticipant
	}
	// Both sides stream concurrently in a duel, so the competitor's open
	// streaming entry is not necessarily the transcript tail. Replace the
	// most recent streaming entry by this competitor wherever it sits.
	for i := len(m.transcript) - 1; i >= 0; i-- {
		e := &m.transcript[i]
		if e.CompetitorID != competitorID {
			continue
		}
		if e.Streaming {
			e.Text = text
			e.Streaming = streaming
			e.Timestamp = time.Now().UTC()
			return nil
		}
		// The competitor's latest turn is already finished; a new partial
		// or response starts a new entry.
		break
	}
	m.transcript = append(m.transcript, Entry{
		CompetitorID: competitorID,
		Text:         text,
		Streaming:    streaming,
		Timestamp:    time.Now().UTC(),
	})
	return nil
}

// ResponseOf returns the latest finished transcript text for a competitor.
func (m *Match) ResponseOf(competitorID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.transcript) - 1; i >= 0; i-- {
		e := m.transcript[i]
		if e.CompetitorID == competitorID && !e.Streaming {
			return e.Text, true
		}
	}
	return "", false
}

// Transcript returns a copy of the transcript, including any in-flight
// streaming entry.
func (m *Match) Transcript() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.transcript...)
}

// AwaitJudgment moves an in-progress match to awaiting_judgment.
func (m *Match) AwaitJudgment() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.status {
	case StatusInProgress:
		m.status = StatusAwaitingJudgment
		return nil
	case StatusAwaitingJudgment:
		return nil
	default:
		return ErrInvalidTransition
	}
}

// Complete records the final outcome. The winner id must be a participant or
// empty for a draw; the result is derived from it. Completing an already
// completed match with the same winner is a no-op.
func (m *Match) Complete(winnerID string, scores Scores) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusCompleted {
		if m.winner == winnerID {
			return nil
		}
		return ErrInvalidTransition
	}
	if m.status != StatusInProgress && m.status != StatusAwaitingJudgment {
		return ErrInvalidTransition
	}
	switch winnerID {
	case m.SideA:
		m.result = ResultWinA
	case m.SideB:
		m.result = ResultWinB
	case "":
		m.result = ResultDraw
	default:
		return ErrNotParticipant
	}
	m.status = StatusCompleted
	m.winner = winnerID
	m.scores = scores
	m.completedAt = time.Now().UTC()
	return nil
}

// Cancel moves a non-terminal match to cancelled.
func (m *Match) Cancel(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.Terminal() {
		return ErrInvalidTransition
	}
	m.status = StatusCancelled
	m.reason = reason
	m.completedAt = time.Now().UTC()
	return nil
}

// Fail moves a non-terminal match to the error state.
func (m *Match) Fail(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.Terminal() {
		return ErrInvalidTransition
	}
	m.status = StatusError
	m.reason = reason
	m.completedAt = time.Now().UTC()
	return nil
}

// Outcome returns the final result, winner id and scores. Only meaningful
// once the match is completed.
func (m *Match) Outcome() (Result, string, Scores) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.winner, m.scores
}

// Reason returns the cancellation or error detail.
func (m *Match) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// CompletedAt returns when the match reached a terminal state.
func (m *Match) CompletedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completedAt
}

// Duration returns how long the match ran, zero while still live.
func (m *Match) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startedAt.IsZero() || m.completedAt.IsZero() {
		return 0
	}
	return m.completedAt.Sub(m.startedAt)
}

// Opponent returns the other side's competitor id.
func (m *Match) Opponent(competitorID string) (string, bool) {
	switch competitorID {
	case m.SideA:
		return m.SideB, true
	case m.SideB:
		return m.SideA, true
	}
	return "", false
}

// Snapshot is an immutable view of a match for persistence and listings.
type Snapshot struct {
	ID          string              `json:"id"`
	Type        Type                `json:"type"`
	SideA       string              `json:"side_a"`
	SideB       string              `json:"side_b"`
	Challenge   challenge.Challenge `json:"challenge"`
	Status      Status              `json:"status"`
	Result      Result              `json:"result,omitempty"`
	Winner      string              `json:"winner,omitempty"`
	Scores      Scores              `json:"scores"`
	Reason      string              `json:"reason,omitempty"`
	Transcript  []Entry             `json:"transcript,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt time.Time           `json:"completed_at,omitempty"`
}

// Snapshot captures the current state of the match.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ID:          m.ID,
		Type:        m.Type,
		SideA:       m.SideA,
		SideB:       m.SideB,
		Challenge:   m.Challenge,
		Status:      m.status,
		Result:      m.result,
		Winner:      m.winner,
		Scores:      m.scores,
		Reason:      m.reason,
		Transcript:  append([]Entry(nil), m.transcript...),
		CreatedAt:   m.createdAt,
		CompletedAt: m.completedAt,
	}
}
