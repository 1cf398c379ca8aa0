package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Transition applies ev to s and returns the next state. It never mutates s
// and performs no I/O; persistence is the Session's job.
func Transition(quiz *model.QuizData, s State, ev Event, env Env) (State, error) {
	next := s.clone()
	if ev.At.IsZero() {
		next.ClockUnavailable = true
	}

	var err error
	switch s.Phase {
	case PhaseGating:
		err = next.onGating(quiz, ev, env)
	case PhaseBlocked:
		err = next.onBlocked(quiz, ev, env)
	case PhaseResumeOffer:
		err = next.onResumeOffer(quiz, ev)
	case PhaseWelcome:
		err = next.onWelcome(quiz, ev, env)
	case PhaseInProgress:
		err = next.onInProgress(quiz, ev)
	case PhaseCompleted:
		if ev.Kind == EventReported {
			next.Phase = PhaseReported
		} else if !passive(ev.Kind) {
			err = ErrEventNotAllowed
		}
	default:
		if !passive(ev.Kind) {
			err = ErrEventNotAllowed
		}
	}
	if err != nil {
		return s, fmt.Errorf("%s on %s: %w", ev.Kind, s.Phase, err)
	}
	if !ev.At.IsZero() {
		next.LastSeen = ev.At
	}
	return next, nil
}

// passive events come from the environment rather than the taker and are
// ignored in phases that do not care about them.
func passive(k EventKind) bool {
	switch k {
	case EventTick, EventFocusLost, EventResize, EventFocusRegained, EventCapture, EventSuspend:
		return true
	}
	return false
}

// ─── Gating ────────────────────────────────────────────────────────────

func (s *State) onGating(quiz *model.QuizData, ev Event, env Env) error {
	switch ev.Kind {
	case EventOpen, EventRetry:
		s.gate(quiz, ev, env)
		return nil
	}
	if passive(ev.Kind) {
		return nil
	}
	return ErrEventNotAllowed
}

func (s *State) gate(quiz *model.QuizData, ev Event, env Env) {
	cfg := &quiz.Settings
	s.Blocked, s.BlockMessage = "", ""

	// Without a clock the schedule cannot be checked; availability wins.
	if cfg.SchedulingEnabled && !s.ClockUnavailable {
		start, end, err := cfg.Window()
		if err == nil {
			switch {
			case !start.IsZero() && ev.At.Before(start):
				s.block(BlockScheduleNotOpen, cfg.SchedulingMessage)
				return
			case !end.IsZero() && ev.At.After(end):
				s.block(BlockScheduleClosed, cfg.SchedulingMessage)
				return
			}
		}
	}

	if cfg.MaxAttempts > 0 && env.AttemptsUsed >= cfg.MaxAttempts {
		s.block(BlockAttemptsExhausted, "")
		return
	}

	s.Phase = PhaseWelcome
	s.AttemptIndex = env.AttemptsUsed + 1
	s.WelcomeAt = ev.At
	s.maybeStart(quiz, ev, env)
}

func (s *State) block(reason BlockReason, msg string) {
	s.Phase = PhaseBlocked
	s.Blocked = reason
	s.BlockMessage = msg
}

func (s *State) onBlocked(quiz *model.QuizData, ev Event, env Env) error {
	if ev.Kind != EventRetry {
		if passive(ev.Kind) {
			return nil
		}
		return ErrEventNotAllowed
	}
	// Only a schedule block can clear by itself; exhausted attempts stay.
	if s.Blocked == BlockAttemptsExhausted {
		return nil
	}
	s.Phase = PhaseGating
	s.gate(quiz, ev, env)
	return nil
}

// ─── Resume ────────────────────────────────────────────────────────────

func (s *State) onResumeOffer(quiz *model.QuizData, ev Event) error {
	switch ev.Kind {
	case EventResume:
		s.Phase = PhaseInProgress
		if !s.ClockUnavailable && quiz.Settings.ResumeClock != model.ResumeClockWall {
			s.resumePaused(ev.At)
		}
		s.expire(quiz, ev.At)
		return nil
	case EventDiscard:
		s.Phase = PhaseAbandoned
		s.Status = model.SessionStatusAbandoned
		s.EndedAt = ev.At
		return nil
	}
	if passive(ev.Kind) {
		return nil
	}
	return ErrEventNotAllowed
}

// resumePaused charges countdowns only up to the last moment the session
// was seen, then restarts them at now.
func (s *State) resumePaused(now time.Time) {
	last := s.LastSeen
	if last.IsZero() || last.After(now) {
		last = now
	}
	for _, c := range []*Countdown{s.Total, s.Question} {
		if c == nil {
			continue
		}
		c.Pause(last)
		c.Resume(now)
	}
}

// ─── Welcome ───────────────────────────────────────────────────────────

func (s *State) onWelcome(quiz *model.QuizData, ev Event, env Env) error {
	switch ev.Kind {
	case EventEnterName:
		name := strings.Join(strings.Fields(ev.Name), " ")
		if name == "" {
			return ErrNameRequired
		}
		if utf8.RuneCountInString(name) > MaxNameLength {
			return ErrNameTooLong
		}
		s.TakerName = name
	case EventTick:
	default:
		if !passive(ev.Kind) {
			return ErrEventNotAllowed
		}
		return nil
	}
	s.maybeStart(quiz, ev, env)
	return nil
}

// maybeStart enters InProgress once the welcome message has been shown long
// enough and a name was given when one is required.
func (s *State) maybeStart(quiz *model.QuizData, ev Event, env Env) {
	cfg := &quiz.Settings
	if !cfg.SkipNameEntry && s.TakerName == "" {
		return
	}
	if cfg.MessageDuration > 0 && !s.ClockUnavailable {
		shown := time.Duration(cfg.MessageDuration) * time.Second
		if ev.At.Sub(s.WelcomeAt) < shown {
			return
		}
	}
	s.start(quiz, ev.At, env)
}

func (s *State) start(quiz *model.QuizData, now time.Time, env Env) {
	cfg := &quiz.Settings

	s.Order = make([]string, len(quiz.Questions))
	for i, q := range quiz.Questions {
		s.Order[i] = q.ID
	}
	if cfg.ShuffleQuestions {
		env.shuffle(len(s.Order), func(i, j int) { s.Order[i], s.Order[j] = s.Order[j], s.Order[i] })
	}

	s.Phase = PhaseInProgress
	s.Cursor = 0
	s.Answers = make(map[string]model.Answer)
	s.TimedOut = make(map[string]bool)
	s.StartedAt = now

	if cfg.TimerEnabled && !s.ClockUnavailable {
		limit := time.Duration(cfg.TimerSeconds) * time.Second
		if cfg.TimerMode == model.TimerModeQuestion {
			s.Question = newCountdown(limit, now)
		} else {
			s.Total = newCountdown(limit, now)
		}
	}
}
