package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/reporter"
	"github.com/stemsi/exstem-quiz/internal/store"
)

const artifactID = "0123456789abcdef0123456789abcdef"

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// device is one browser profile: a store shared by every page load.
type device struct {
	store *store.Memory
	rep   Reporter
	ids   func() string
}

func newDevice() *device {
	st := store.NewMemory()
	return &device{store: st, rep: reporter.New(st, nil, zerolog.Nop()), ids: sequentialIDs()}
}

// load simulates opening the document.
func (d *device) load(t *testing.T, quiz *model.QuizData, now time.Time) (*Session, State) {
	t.Helper()
	s := NewSession(quiz, artifactID, d.store, d.rep, zerolog.Nop(), WithIDs(d.ids))
	st, err := s.Open(context.Background(), now)
	require.NoError(t, err)
	return s, st
}

func dispatch(t *testing.T, s *Session, ev Event) State {
	t.Helper()
	st, err := s.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return st
}

func TestSessionCompletesAndReports(t *testing.T) {
	d := newDevice()
	quiz := trueFalseQuiz()
	quiz.Settings.MaxAttempts = 1

	s, st := d.load(t, quiz, t0)
	require.Equal(t, PhaseInProgress, st.Phase)

	dispatch(t, s, choose("q1", "t", at(time.Second)))
	st = dispatch(t, s, Event{Kind: EventSubmit, At: at(2 * time.Second)})
	assert.Equal(t, PhaseReported, st.Phase)

	res := s.Result()
	require.NotNil(t, res)
	assert.Equal(t, 10.0, res.Score)
	assert.Equal(t, model.TierFullMark, res.Tier)
	assert.Equal(t, artifactID, res.ArtifactID)
	assert.Equal(t, 1, res.AttemptIndex)
	assert.Equal(t, 1, s.AttemptsUsed())

	_, err := d.store.Get(context.Background(), config.StoreKey.SnapshotKey(artifactID))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A second attempt on the same device is blocked without a question.
	_, st = d.load(t, quiz, at(time.Hour))
	assert.Equal(t, PhaseBlocked, st.Phase)
	assert.Equal(t, BlockAttemptsExhausted, st.Blocked)
	assert.Empty(t, st.Order)
}

func TestSessionThirdAttemptBlocked(t *testing.T) {
	d := newDevice()
	quiz := trueFalseQuiz()
	quiz.Settings.MaxAttempts = 2

	for i := 0; i < 2; i++ {
		s, st := d.load(t, quiz, at(time.Duration(i)*time.Hour))
		require.Equal(t, PhaseInProgress, st.Phase, "attempt %d", i+1)
		dispatch(t, s, Event{Kind: EventSubmit, At: at(time.Duration(i)*time.Hour + time.Minute)})
	}

	_, st := d.load(t, quiz, at(3*time.Hour))
	assert.Equal(t, PhaseBlocked, st.Phase)
}

func TestSessionDeviceIDIsStable(t *testing.T) {
	d := newDevice()
	quiz := trueFalseQuiz()

	s1, st1 := d.load(t, quiz, t0)
	dispatch(t, s1, Event{Kind: EventSubmit, At: at(time.Second)})
	_, st2 := d.load(t, quiz, at(time.Minute))

	assert.Equal(t, st1.DeviceID, st2.DeviceID)
	assert.NotEqual(t, st1.SessionID, st2.SessionID)
}

func TestSessionResumeAfterReload(t *testing.T) {
	d := newDevice()
	quiz := threeQuestionQuiz()
	quiz.Settings.TimerEnabled = true
	quiz.Settings.TimerSeconds = 120

	s, first := d.load(t, quiz, t0)
	dispatch(t, s, choose("q1", "a", at(10*time.Second)))
	dispatch(t, s, Event{Kind: EventNext, At: at(20 * time.Second)})
	dispatch(t, s, Event{Kind: EventSuspend, At: at(30 * time.Second)})

	// Page closed; reopened an hour later.
	s, st := d.load(t, quiz, at(time.Hour))
	require.Equal(t, PhaseResumeOffer, st.Phase)
	assert.Equal(t, first.SessionID, st.SessionID)

	st = dispatch(t, s, Event{Kind: EventResume, At: at(time.Hour)})
	assert.Equal(t, PhaseInProgress, st.Phase)
	assert.Equal(t, "q2", st.Current())
	assert.Contains(t, st.Answers, "q1")

	left, ok := st.Remaining(at(time.Hour))
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, left)
	assert.Zero(t, s.AttemptsUsed(), "suspension consumes no attempt")
}

func TestSessionDiscardStartsFresh(t *testing.T) {
	d := newDevice()
	quiz := threeQuestionQuiz()
	quiz.Settings.MaxAttempts = 1

	s, first := d.load(t, quiz, t0)
	dispatch(t, s, choose("q1", "a", at(time.Second)))

	s, _ = d.load(t, quiz, at(time.Minute))
	st := dispatch(t, s, Event{Kind: EventDiscard, At: at(time.Minute)})
	assert.Equal(t, PhaseInProgress, st.Phase)
	assert.NotEqual(t, first.SessionID, st.SessionID)
	assert.Empty(t, st.Answers)
	assert.Zero(t, s.AttemptsUsed())

	raw, err := d.store.Get(context.Background(), config.StoreKey.ResultKey(artifactID, first.SessionID))
	require.NoError(t, err)
	assert.Contains(t, string(raw), string(model.SessionStatusAbandoned))
}

func TestSessionCorruptSnapshotIsIgnored(t *testing.T) {
	d := newDevice()
	quiz := threeQuestionQuiz()
	d.store.Set(config.StoreKey.SnapshotKey(artifactID), []byte(`{"phase":"in_progress","order":[`))

	_, st := d.load(t, quiz, t0)
	assert.Equal(t, PhaseInProgress, st.Phase)
	assert.Equal(t, []string{"q1", "q2", "q3"}, st.Order)
}

func TestSessionForeignSnapshotIsIgnored(t *testing.T) {
	d := newDevice()
	quiz := threeQuestionQuiz()
	d.store.Set(config.StoreKey.SnapshotKey(artifactID),
		[]byte(`{"phase":"in_progress","sessionId":"x","order":["a","b","c"],"cursor":0}`))

	_, st := d.load(t, quiz, t0)
	assert.Equal(t, PhaseInProgress, st.Phase)
	assert.NotEqual(t, "x", st.SessionID)
}

// flakyReporter fails a fixed number of times before delegating.
type flakyReporter struct {
	inner    Reporter
	failures int
}

func (f *flakyReporter) Report(ctx context.Context, res *model.SessionResult, settings *model.QuizSettings) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("storage unavailable")
	}
	return f.inner.Report(ctx, res, settings)
}

func TestSessionUnreportedCompletionIsRetriedOnOpen(t *testing.T) {
	d := newDevice()
	d.rep = &flakyReporter{inner: d.rep, failures: 1}
	quiz := trueFalseQuiz()

	s, _ := d.load(t, quiz, t0)
	dispatch(t, s, choose("q1", "t", at(time.Second)))
	st, err := s.Dispatch(context.Background(), Event{Kind: EventSubmit, At: at(2 * time.Second)})
	require.Error(t, err)
	assert.Equal(t, PhaseCompleted, st.Phase)
	assert.Zero(t, s.AttemptsUsed())

	s, st = d.load(t, quiz, at(time.Minute))
	assert.Equal(t, PhaseReported, st.Phase)
	assert.Equal(t, 1, s.AttemptsUsed())
	require.NotNil(t, s.Result())
	assert.Equal(t, 10.0, s.Result().Score)
	assert.True(t, s.Result().EndedAt.Equal(at(2*time.Second)))
}

func TestSessionTimeoutSubmitsThroughDriver(t *testing.T) {
	d := newDevice()
	quiz := threeQuestionQuiz()
	quiz.Settings.TimerEnabled = true
	quiz.Settings.TimerSeconds = 60

	s, _ := d.load(t, quiz, t0)
	st := dispatch(t, s, Event{Kind: EventTick, At: at(2 * time.Minute)})

	assert.Equal(t, PhaseReported, st.Phase)
	assert.Equal(t, model.SessionStatusTimedOut, s.Result().Status)
	assert.Equal(t, 1, s.AttemptsUsed())
}

func TestSessionRejectedEventKeepsState(t *testing.T) {
	d := newDevice()
	quiz := threeQuestionQuiz()

	s, before := d.load(t, quiz, t0)
	_, err := s.Dispatch(context.Background(), Event{Kind: EventPrev, At: t0})
	require.ErrorIs(t, err, ErrFirstQuestion)
	assert.Equal(t, before.Cursor, s.State().Cursor)
}

func TestSessionOverlongNameKeepsAttemptLimit(t *testing.T) {
	d := newDevice()
	quiz := trueFalseQuiz()
	quiz.Settings.MaxAttempts = 1
	quiz.Settings.SkipNameEntry = false

	s, st := d.load(t, quiz, t0)
	require.Equal(t, PhaseWelcome, st.Phase)

	_, err := s.Dispatch(context.Background(), Event{Kind: EventEnterName, Name: strings.Repeat("ن", MaxNameLength+1), At: t0})
	require.ErrorIs(t, err, ErrNameTooLong)
	assert.Equal(t, PhaseWelcome, s.State().Phase)

	st = dispatch(t, s, Event{Kind: EventEnterName, Name: strings.Repeat("ن", MaxNameLength), At: t0})
	require.Equal(t, PhaseInProgress, st.Phase)
	dispatch(t, s, choose("q1", "t", at(time.Second)))
	st = dispatch(t, s, Event{Kind: EventSubmit, At: at(2 * time.Second)})
	assert.Equal(t, PhaseReported, st.Phase)
	assert.Equal(t, 1, s.AttemptsUsed())

	_, st = d.load(t, quiz, at(time.Minute))
	assert.Equal(t, PhaseBlocked, st.Phase)
	assert.Equal(t, BlockAttemptsExhausted, st.Blocked)
}
