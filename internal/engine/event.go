package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

type EventKind string

const (
	EventOpen          EventKind = "open"
	EventRetry         EventKind = "retry"
	EventResume        EventKind = "resume"
	EventDiscard       EventKind = "discard"
	EventTick          EventKind = "tick"
	EventEnterName     EventKind = "enter_name"
	EventAnswer        EventKind = "answer"
	EventNext          EventKind = "next"
	EventPrev          EventKind = "prev"
	EventGoto          EventKind = "goto"
	EventSubmit        EventKind = "submit"
	EventFocusLost     EventKind = "focus_lost"
	EventResize        EventKind = "resize"
	EventFocusRegained EventKind = "focus_regained"
	EventCapture       EventKind = "capture"
	EventSuspend       EventKind = "suspend"
	EventReported      EventKind = "reported"
)

// Event is one input to the state machine. A zero At means the clock could
// not be read.
type Event struct {
	Kind       EventKind    `json:"kind"`
	At         time.Time    `json:"at"`
	Name       string       `json:"name,omitempty"`
	QuestionID string       `json:"questionId,omitempty"`
	Answer     model.Answer `json:"answer,omitempty"`
	Index      int          `json:"index,omitempty"`
}

// Env is the outside information a transition may consult.
type Env struct {
	// AttemptsUsed is the number of sessions on this device that reached
	// Reported for this artifact.
	AttemptsUsed int
	// Shuffle permutes the question order; nil uses math/rand.
	Shuffle func(n int, swap func(i, j int))
}

func (e Env) shuffle(n int, swap func(i, j int)) {
	if e.Shuffle != nil {
		e.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

// MaxNameLength bounds the taker name in runes, the same limit the result
// schema enforces on takerName.
const MaxNameLength = 255

var (
	ErrEventNotAllowed    = errors.New("event not allowed in this phase")
	ErrNameRequired       = errors.New("name is required")
	ErrNameTooLong        = fmt.Errorf("name is longer than %d characters", MaxNameLength)
	ErrRevisitNotAllowed  = errors.New("returning to earlier questions is not allowed")
	ErrNotCurrentQuestion = errors.New("only the current question can be answered")
	ErrUnknownChoice      = errors.New("answer references an unknown choice")
	ErrLastQuestion       = errors.New("already at the last question")
	ErrFirstQuestion      = errors.New("already at the first question")
	ErrOutOfRange         = errors.New("question index out of range")
	ErrLocked             = errors.New("session is locked, only submit is allowed")
)
