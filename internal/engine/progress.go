package engine

import (
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

func (s *State) onInProgress(quiz *model.QuizData, ev Event) error {
	// Timers are settled first: an answer arriving after the deadline is
	// too late.
	if s.expire(quiz, ev.At) {
		return nil
	}

	cfg := &quiz.Settings
	switch ev.Kind {
	case EventTick, EventSuspend:
		return nil

	case EventAnswer:
		if s.Locked {
			return ErrLocked
		}
		return s.answer(quiz, ev)

	case EventNext:
		if s.Locked {
			return ErrLocked
		}
		if s.Cursor >= len(s.Order)-1 {
			return ErrLastQuestion
		}
		s.moveTo(s.Cursor+1, ev.At)
		return nil

	case EventPrev:
		if s.Locked {
			return ErrLocked
		}
		if !cfg.RevisitAllowed() {
			return ErrRevisitNotAllowed
		}
		if s.Cursor == 0 {
			return ErrFirstQuestion
		}
		s.moveTo(s.Cursor-1, ev.At)
		return nil

	case EventGoto:
		if s.Locked {
			return ErrLocked
		}
		if ev.Index < 0 || ev.Index >= len(s.Order) {
			return ErrOutOfRange
		}
		// Jumping is free navigation; per-question timing only moves forward
		// one question at a time.
		if !cfg.RevisitAllowed() {
			return ErrRevisitNotAllowed
		}
		s.moveTo(ev.Index, ev.At)
		return nil

	case EventSubmit:
		status := model.SessionStatusCompleted
		if s.Locked {
			status = model.SessionStatusViolation
		}
		s.complete(status, ev.At)
		return nil

	case EventFocusLost, EventResize:
		if cfg.PreventSplitScreen {
			s.strike(cfg, strikeKind(ev.Kind), ev.At)
		}
		return nil

	case EventCapture:
		if cfg.PreventScreenshot {
			s.Obscured = true
			s.Strikes = append(s.Strikes, model.Strike{Kind: model.StrikeCapture, At: ev.At, Reaction: "obscure"})
		}
		return nil

	case EventFocusRegained:
		s.Obscured = false
		s.Warning = ""
		return nil
	}
	return ErrEventNotAllowed
}

func (s *State) answer(quiz *model.QuizData, ev Event) error {
	id := ev.QuestionID
	if id == "" {
		id = s.Current()
	}
	if id != s.Current() {
		return ErrNotCurrentQuestion
	}
	q, ok := quiz.Question(id)
	if !ok {
		return ErrNotCurrentQuestion
	}
	for _, cid := range ev.Answer.ChoiceIDs {
		if _, ok := q.Choice(cid); !ok {
			return ErrUnknownChoice
		}
	}
	for cid := range ev.Answer.Pairs {
		if _, ok := q.Choice(cid); !ok {
			return ErrUnknownChoice
		}
	}

	if ev.Answer.Empty() {
		delete(s.Answers, id)
		return nil
	}
	a := ev.Answer
	a.ChoiceIDs = append([]string(nil), ev.Answer.ChoiceIDs...)
	if ev.Answer.Pairs != nil {
		a.Pairs = make(map[string]string, len(ev.Answer.Pairs))
		for k, v := range ev.Answer.Pairs {
			a.Pairs[k] = v
		}
	}
	a.AnsweredAt = ev.At
	s.Answers[id] = a
	return nil
}

func (s *State) moveTo(index int, now time.Time) {
	s.Cursor = index
	s.Warning = ""
	if s.Question != nil {
		s.Question = newCountdown(s.Question.Limit, now)
	}
}

// expire settles every countdown that ran out by now. It reports whether
// the session completed as a result.
func (s *State) expire(quiz *model.QuizData, now time.Time) bool {
	if s.ClockUnavailable || s.Phase != PhaseInProgress {
		return false
	}

	if s.Total != nil && s.Total.Expired(now) {
		s.complete(model.SessionStatusTimedOut, s.Total.Deadline())
		return true
	}

	// Each question that ran out is cleared and the next one starts at the
	// previous deadline, so a long suspension cannot hand out extra time.
	for s.Question != nil && s.Question.Expired(now) {
		deadline := s.Question.Deadline()
		id := s.Current()
		delete(s.Answers, id)
		s.TimedOut[id] = true
		if s.Cursor >= len(s.Order)-1 {
			s.complete(model.SessionStatusTimedOut, deadline)
			return true
		}
		s.Cursor++
		s.Question = newCountdown(s.Question.Limit, deadline)
	}
	return false
}

func (s *State) complete(status model.SessionStatus, at time.Time) {
	s.Phase = PhaseCompleted
	s.Status = status
	s.EndedAt = at
	s.Warning = ""
	for _, c := range []*Countdown{s.Total, s.Question} {
		if c != nil {
			c.Pause(at)
		}
	}
}

func strikeKind(k EventKind) model.StrikeKind {
	if k == EventResize {
		return model.StrikeResize
	}
	return model.StrikeFocusLost
}
