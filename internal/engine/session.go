package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/store"
)

// Reporter finalizes a session. Report must persist the result, the attempt
// marker and the snapshot removal in one atomic write before returning.
type Reporter interface {
	Report(ctx context.Context, res *model.SessionResult, settings *model.QuizSettings) error
}

// Session drives one taker's run through the state machine and keeps the
// snapshot in the store current.
type Session struct {
	quiz       *model.QuizData
	artifactID string
	store      store.Store
	reporter   Reporter
	log        zerolog.Logger
	shuffle    func(n int, swap func(i, j int))
	newID      func() string

	mu       sync.Mutex
	state    State
	result   *model.SessionResult
	attempts int
}

type Option func(*Session)

// WithShuffle replaces the random permutation used for shuffled quizzes.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Session) { s.shuffle = fn }
}

// WithIDs replaces the session/device id generator.
func WithIDs(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

func NewSession(quiz *model.QuizData, artifactID string, st store.Store, rep Reporter, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		quiz:       quiz,
		artifactID: artifactID,
		store:      st,
		reporter:   rep,
		log:        log.With().Str("component", "session").Str("artifact_id", artifactID).Logger(),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts or recovers the session for this device. An unfinished
// session becomes a resume offer; a session that completed but was never
// reported is reported now.
func (s *Session) Open(ctx context.Context, now time.Time) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deviceID := s.deviceID(ctx)
	s.attempts = s.countAttempts(ctx)
	s.result = nil

	if snap, ok := s.loadSnapshot(ctx); ok {
		switch snap.Phase {
		case PhaseInProgress:
			snap.Phase = PhaseResumeOffer
			s.state = snap
			s.log.Info().Str("session_id", snap.SessionID).Msg("Unfinished session found, offering resume")
			return s.state.clone(), nil
		case PhaseCompleted:
			s.state = snap
			s.log.Info().Str("session_id", snap.SessionID).Msg("Completed session was not reported, finalizing")
			err := s.finalize(ctx, now)
			return s.state.clone(), err
		}
	}

	return s.fresh(ctx, deviceID, now)
}

// Dispatch feeds one event through the state machine.
func (s *Session) Dispatch(ctx context.Context, ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, ev)
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Result returns the finalized result once the session completed.
func (s *Session) Result() *model.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// AttemptsUsed is the number of reported sessions on this device.
func (s *Session) AttemptsUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) fresh(ctx context.Context, deviceID string, now time.Time) (State, error) {
	s.state = State{
		Phase:     PhaseGating,
		SessionID: s.newID(),
		DeviceID:  deviceID,
	}
	return s.apply(ctx, Event{Kind: EventOpen, At: now})
}

func (s *Session) apply(ctx context.Context, ev Event) (State, error) {
	if s.state.Phase == PhaseBlocked || s.state.Phase == PhaseGating {
		s.attempts = s.countAttempts(ctx)
	}

	next, err := Transition(s.quiz, s.state, ev, Env{AttemptsUsed: s.attempts, Shuffle: s.shuffle})
	if err != nil {
		return s.state.clone(), err
	}
	prev, hadClock := s.state.Phase, !s.state.ClockUnavailable
	s.state = next

	if prev != next.Phase {
		s.log.Debug().
			Str("session_id", next.SessionID).
			Str("from", string(prev)).
			Str("to", string(next.Phase)).
			Str("event", string(ev.Kind)).
			Msg("Phase changed")
	}
	if hadClock && next.ClockUnavailable {
		s.log.Warn().Str("session_id", next.SessionID).Msg("Clock unavailable, scheduling open and timers disabled")
	}

	switch next.Phase {
	case PhaseInProgress:
		s.saveSnapshot(ctx)
	case PhaseCompleted:
		s.saveSnapshot(ctx)
		err := s.finalize(ctx, ev.At)
		return s.state.clone(), err
	case PhaseAbandoned:
		res := BuildResult(s.quiz, s.artifactID, &s.state)
		if err := s.reporter.Report(ctx, res, &s.quiz.Settings); err != nil {
			s.log.Error().Err(err).Str("session_id", res.SessionID).Msg("Failed to record abandoned session")
		}
		return s.fresh(ctx, next.DeviceID, ev.At)
	}
	return s.state.clone(), nil
}

// finalize scores the completed state, hands the result to the reporter and
// moves to Reported. If the reporter cannot persist, the completed snapshot
// stays behind and the next Open retries.
func (s *Session) finalize(ctx context.Context, at time.Time) error {
	res := BuildResult(s.quiz, s.artifactID, &s.state)
	s.result = res

	if err := s.reporter.Report(ctx, res, &s.quiz.Settings); err != nil {
		s.log.Error().Err(err).Str("session_id", res.SessionID).Msg("Failed to persist result")
		return fmt.Errorf("report result: %w", err)
	}
	s.attempts = s.countAttempts(ctx)

	next, err := Transition(s.quiz, s.state, Event{Kind: EventReported, At: at}, Env{AttemptsUsed: s.attempts})
	if err != nil {
		return err
	}
	s.state = next

	s.log.Info().
		Str("session_id", res.SessionID).
		Str("status", string(res.Status)).
		Float64("score", res.Score).
		Float64("max_score", res.MaxScore).
		Str("tier", string(res.Tier)).
		Msg("Session reported")
	return nil
}

func (s *Session) deviceID(ctx context.Context) string {
	key := config.StoreKey.DeviceKey(s.artifactID)
	if raw, err := s.store.Get(ctx, key); err == nil && len(raw) > 0 {
		return string(raw)
	}
	id := s.newID()
	if err := s.store.Apply(ctx, store.Put(key, []byte(id))); err != nil {
		s.log.Warn().Err(err).Msg("Failed to persist device id")
	}
	return id
}

// countAttempts treats unreadable attempt state as no attempts used.
func (s *Session) countAttempts(ctx context.Context) int {
	keys, err := s.store.List(ctx, config.StoreKey.AttemptPrefix(s.artifactID))
	if err != nil {
		s.log.Warn().Err(err).Msg("Attempt state unreadable, treating as none used")
		return 0
	}
	return len(keys)
}

// loadSnapshot treats a missing, unreadable or corrupt snapshot as absent.
func (s *Session) loadSnapshot(ctx context.Context) (State, bool) {
	key := config.StoreKey.SnapshotKey(s.artifactID)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Msg("Snapshot unreadable, starting fresh")
		}
		return State{}, false
	}

	var snap State
	if err := json.Unmarshal(raw, &snap); err != nil || !s.plausible(&snap) {
		s.log.Warn().Err(err).Msg("Snapshot corrupt, discarding")
		if err := s.store.Apply(ctx, store.Del(key)); err != nil {
			s.log.Warn().Err(err).Msg("Failed to remove corrupt snapshot")
		}
		return State{}, false
	}
	return snap, true
}

// plausible checks that a snapshot belongs to this quiz.
func (s *Session) plausible(snap *State) bool {
	if snap.SessionID == "" || len(snap.Order) != len(s.quiz.Questions) {
		return false
	}
	for _, id := range snap.Order {
		if _, ok := s.quiz.Question(id); !ok {
			return false
		}
	}
	if snap.Cursor < 0 || snap.Cursor >= len(snap.Order) {
		return false
	}
	if snap.Answers == nil {
		snap.Answers = make(map[string]model.Answer)
	}
	if snap.TimedOut == nil {
		snap.TimedOut = make(map[string]bool)
	}
	return true
}

func (s *Session) saveSnapshot(ctx context.Context) {
	raw, err := json.Marshal(s.state)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode snapshot")
		return
	}
	if err := s.store.Apply(ctx, store.Put(config.StoreKey.SnapshotKey(s.artifactID), raw)); err != nil {
		s.log.Warn().Err(err).Msg("Failed to persist snapshot")
	}
}
