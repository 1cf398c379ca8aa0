// Package engine is the delivery runtime: an explicit state machine over a
// serializable session State, plus a Session driver that persists it.
package engine

import (
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

type Phase string

const (
	PhaseGating      Phase = "gating"
	PhaseResumeOffer Phase = "resume_offer"
	PhaseBlocked     Phase = "blocked"
	PhaseWelcome     Phase = "welcome"
	PhaseInProgress  Phase = "in_progress"
	PhaseCompleted   Phase = "completed"
	PhaseReported    Phase = "reported"
	// PhaseAbandoned is reached when the taker discards a resumable session.
	// The driver replaces it with a fresh session immediately.
	PhaseAbandoned Phase = "abandoned"
)

// Terminal reports whether no event can move the session forward.
func (p Phase) Terminal() bool {
	return p == PhaseReported || p == PhaseAbandoned
}

type BlockReason string

const (
	BlockScheduleNotOpen   BlockReason = "schedule_not_open"
	BlockScheduleClosed    BlockReason = "schedule_closed"
	BlockAttemptsExhausted BlockReason = "attempts_exhausted"
)

// Countdown is a wall-clock timer. Remaining time is always recomputed from
// absolute instants, so slow ticks can never stretch it.
type Countdown struct {
	Limit   time.Duration `json:"limit"`
	Elapsed time.Duration `json:"elapsed"`
	// RunningSince is when the current run began; zero while paused.
	RunningSince time.Time `json:"runningSince,omitempty"`
}

func newCountdown(limit time.Duration, now time.Time) *Countdown {
	return &Countdown{Limit: limit, RunningSince: now}
}

// Used is the total time charged at now.
func (c *Countdown) Used(now time.Time) time.Duration {
	used := c.Elapsed
	if !c.RunningSince.IsZero() && now.After(c.RunningSince) {
		used += now.Sub(c.RunningSince)
	}
	return used
}

func (c *Countdown) Remaining(now time.Time) time.Duration {
	r := c.Limit - c.Used(now)
	if r < 0 {
		return 0
	}
	return r
}

func (c *Countdown) Expired(now time.Time) bool {
	return c.Used(now) >= c.Limit
}

// Deadline is the instant the countdown runs out. Only meaningful while running.
func (c *Countdown) Deadline() time.Time {
	return c.RunningSince.Add(c.Limit - c.Elapsed)
}

// Pause freezes the countdown at now.
func (c *Countdown) Pause(now time.Time) {
	if c.RunningSince.IsZero() {
		return
	}
	c.Elapsed = c.Used(now)
	c.RunningSince = time.Time{}
}

// Resume restarts a paused countdown at now.
func (c *Countdown) Resume(now time.Time) {
	if c.RunningSince.IsZero() {
		c.RunningSince = now
	}
}

// State is everything needed to continue a session. It is the snapshot
// persisted for resumability.
type State struct {
	Phase        Phase  `json:"phase"`
	SessionID    string `json:"sessionId"`
	DeviceID     string `json:"deviceId"`
	AttemptIndex int    `json:"attemptIndex"`

	Blocked      BlockReason `json:"blocked,omitempty"`
	BlockMessage string      `json:"blockMessage,omitempty"`

	WelcomeAt time.Time `json:"welcomeAt,omitempty"`
	TakerName string    `json:"takerName,omitempty"`

	Order    []string                `json:"order,omitempty"`
	Cursor   int                     `json:"cursor"`
	Answers  map[string]model.Answer `json:"answers,omitempty"`
	TimedOut map[string]bool         `json:"timedOut,omitempty"`

	Total    *Countdown `json:"total,omitempty"`
	Question *Countdown `json:"question,omitempty"`

	StartedAt time.Time `json:"startedAt,omitempty"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
	LastSeen  time.Time `json:"lastSeen,omitempty"`

	Strikes  []model.Strike `json:"strikes,omitempty"`
	Warnings int            `json:"warnings,omitempty"`
	Warning  string         `json:"warning,omitempty"`
	Locked   bool           `json:"locked,omitempty"`
	Obscured bool           `json:"obscured,omitempty"`

	Status           model.SessionStatus `json:"status,omitempty"`
	ClockUnavailable bool                `json:"clockUnavailable,omitempty"`
}

// Current returns the id of the question under the cursor.
func (s *State) Current() string {
	if s.Cursor < 0 || s.Cursor >= len(s.Order) {
		return ""
	}
	return s.Order[s.Cursor]
}

// Remaining returns the time left on the active countdown. ok is false when
// no timer is running.
func (s *State) Remaining(now time.Time) (time.Duration, bool) {
	switch {
	case s.ClockUnavailable:
		return 0, false
	case s.Total != nil:
		return s.Total.Remaining(now), true
	case s.Question != nil:
		return s.Question.Remaining(now), true
	}
	return 0, false
}

func (s State) clone() State {
	out := s
	out.Order = append([]string(nil), s.Order...)
	out.Strikes = append([]model.Strike(nil), s.Strikes...)
	if s.Answers != nil {
		out.Answers = make(map[string]model.Answer, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	if s.TimedOut != nil {
		out.TimedOut = make(map[string]bool, len(s.TimedOut))
		for k, v := range s.TimedOut {
			out.TimedOut[k] = v
		}
	}
	if s.Total != nil {
		t := *s.Total
		out.Total = &t
	}
	if s.Question != nil {
		q := *s.Question
		out.Question = &q
	}
	return out
}
