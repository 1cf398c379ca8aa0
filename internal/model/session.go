package model

import (
	"time"
)

// SessionStatus is the completion status recorded with a result.
type SessionStatus string

const (
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusTimedOut  SessionStatus = "auto-submitted-on-timeout"
	SessionStatusViolation SessionStatus = "auto-submitted-on-violation"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// Tier names the feedback band a score fell into.
type Tier string

const (
	TierFullMark  Tier = "fullMark"
	TierExcellent Tier = "excellent"
	TierVeryGood  Tier = "veryGood"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
	// TierPending is used when nothing in the quiz is auto-scorable.
	TierPending Tier = "pending"
)

// Answer is what the taker submitted for one question. Only the field
// matching the question type is used.
type Answer struct {
	ChoiceIDs  []string          `json:"choiceIds,omitempty"`
	Text       string            `json:"text,omitempty"`
	Pairs      map[string]string `json:"pairs,omitempty"`
	AnsweredAt time.Time         `json:"answeredAt"`
}

// Empty reports whether nothing was captured.
func (a Answer) Empty() bool {
	return len(a.ChoiceIDs) == 0 && a.Text == "" && len(a.Pairs) == 0
}

// AnswerRecord is the graded outcome of one question.
type AnswerRecord struct {
	QuestionID   string       `json:"questionId"`
	Type         QuestionType `json:"type"`
	Answer       *Answer      `json:"answer,omitempty"`
	Correct      bool         `json:"correct"`
	Points       float64      `json:"points"`
	MaxPoints    float64      `json:"maxPoints"`
	TimedOut     bool         `json:"timedOut,omitempty"`
	ManualReview bool         `json:"manualReview,omitempty"`
}

type StrikeKind string

const (
	StrikeFocusLost StrikeKind = "focus_lost"
	StrikeResize    StrikeKind = "resize"
	StrikeCapture   StrikeKind = "capture"
)

// Strike is one anti-cheat trigger and the reaction applied to it.
type Strike struct {
	Kind     StrikeKind `json:"kind"`
	At       time.Time  `json:"at"`
	Reaction string     `json:"reaction"`
}

// SessionResult is the finalized outcome of one session, handed to the
// reporter and never mutated afterwards.
type SessionResult struct {
	ArtifactID      string         `json:"artifactId" binding:"required,max=64"`
	SessionID       string         `json:"sessionId" binding:"required,max=64"`
	DeviceID        string         `json:"deviceId" binding:"max=64"`
	Title           string         `json:"title"`
	ClassName       string         `json:"className,omitempty"`
	Subject         string         `json:"subject,omitempty"`
	TakerName       string         `json:"takerName,omitempty" binding:"max=255"`
	Answers         []AnswerRecord `json:"answers"`
	Score           float64        `json:"score" binding:"min=0"`
	MaxScore        float64        `json:"maxScore" binding:"min=0"`
	Percent         float64        `json:"percent" binding:"min=0,max=100"`
	Tier            Tier           `json:"tier"`
	FeedbackMessage string         `json:"feedbackMessage,omitempty"`
	ManualReview    []string       `json:"manualReview,omitempty"`
	Strikes         []Strike       `json:"strikes,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	EndedAt         time.Time      `json:"endedAt"`
	AttemptIndex    int            `json:"attemptIndex" binding:"min=0"`
	Status          SessionStatus  `json:"status" binding:"required,oneof=completed auto-submitted-on-timeout auto-submitted-on-violation abandoned"`
	// ClockUnavailable is set when the runtime could not read the clock and
	// fell back to open scheduling without timers.
	ClockUnavailable bool `json:"clockUnavailable,omitempty"`
}
