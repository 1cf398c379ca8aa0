//go:build cucumber

package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/reporter"
	"github.com/stemsi/exstem-quiz/internal/store"
)

// TestDeliveryScenarios runs the delivery feature scenarios.
func TestDeliveryScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "delivery",
		ScenarioInitializer: InitializeDeliveryScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("features", "delivery.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeDeliveryScenario wires steps for the delivery scenarios.
func InitializeDeliveryScenario(ctx *godog.ScenarioContext) {
	state := &deliveryScenario{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a true/false quiz worth (\d+) points with correct answer "(True|False)"$`, state.givenTrueFalseQuiz)
	ctx.Step(`^a quiz with (\d+) multiple choice questions$`, state.givenMultipleChoiceQuiz)
	ctx.Step(`^the quiz allows (\d+) attempts?$`, state.givenMaxAttempts)
	ctx.Step(`^the quiz has a (\d+) second (total|question) timer$`, state.givenTimer)
	ctx.Step(`^the quiz is scheduled between second (\d+) and second (\d+)$`, state.givenSchedule)
	ctx.Step(`^split-screen prevention with up to (\d+) warnings$`, state.givenSplitScreenPrevention)

	ctx.Step(`^the taker opens the quiz at second (\d+)$`, state.whenOpen)
	ctx.Step(`^the taker retries at second (\d+)$`, state.event(EventRetry))
	ctx.Step(`^the taker resumes at second (\d+)$`, state.event(EventResume))
	ctx.Step(`^the taker submits at second (\d+)$`, state.event(EventSubmit))
	ctx.Step(`^the taker moves to the next question at second (\d+)$`, state.event(EventNext))
	ctx.Step(`^the taker leaves the window at second (\d+)$`, state.event(EventFocusLost))
	ctx.Step(`^time passes until second (\d+)$`, state.event(EventTick))
	ctx.Step(`^the taker answers "([^"]+)" at second (\d+)$`, state.whenAnswer)

	ctx.Step(`^the phase is "([^"]+)"$`, state.thenPhase)
	ctx.Step(`^the session is blocked because "([^"]+)"$`, state.thenBlocked)
	ctx.Step(`^no question is shown$`, state.thenNoQuestion)
	ctx.Step(`^the score is (\d+) out of (\d+)$`, state.thenScore)
	ctx.Step(`^the feedback tier is "([^"]+)"$`, state.thenTier)
	ctx.Step(`^the result status is "([^"]+)"$`, state.thenStatus)
	ctx.Step(`^the current question is number (\d+)$`, state.thenCurrentQuestion)
	ctx.Step(`^(\d+) seconds remain$`, state.thenRemaining)
	ctx.Step(`^a warning is shown$`, state.thenWarning)
	ctx.Step(`^the session is locked$`, state.thenLocked)
}

// deliveryScenario holds one device and the session currently open on it.
type deliveryScenario struct {
	quiz    *model.QuizData
	store   *store.Memory
	session *Session
	state   State
}

func (s *deliveryScenario) reset() {
	s.quiz = &model.QuizData{Settings: model.QuizSettings{
		Title:         "Scenario",
		SkipNameEntry: true,
		AntiCheat:     model.AntiCheatPolicy{Reaction: model.CheatReactionWarn, MaxWarnings: model.IntPtr(2)},
	}}
	s.store = store.NewMemory()
	s.session = nil
	s.state = State{}
}

func (s *deliveryScenario) second(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Second)
}

func (s *deliveryScenario) givenTrueFalseQuiz(points int, correct string) error {
	s.quiz.Questions = []model.Question{{
		ID:     "q1",
		Type:   model.QuestionTypeTrueFalse,
		Points: float64(points),
		Choices: []model.Choice{
			{ID: "t", Text: "True", IsCorrect: correct == "True"},
			{ID: "f", Text: "False", IsCorrect: correct == "False"},
		},
	}}
	return nil
}

func (s *deliveryScenario) givenMultipleChoiceQuiz(n int) error {
	s.quiz.Questions = nil
	for i := 1; i <= n; i++ {
		s.quiz.Questions = append(s.quiz.Questions, model.Question{
			ID:     fmt.Sprintf("q%d", i),
			Type:   model.QuestionTypeMultipleChoice,
			Points: 1,
			Choices: []model.Choice{
				{ID: "a", Text: "yes", IsCorrect: true},
				{ID: "b", Text: "no"},
			},
		})
	}
	return nil
}

func (s *deliveryScenario) givenMaxAttempts(n int) error {
	s.quiz.Settings.MaxAttempts = n
	return nil
}

func (s *deliveryScenario) givenTimer(seconds int, mode string) error {
	s.quiz.Settings.TimerEnabled = true
	s.quiz.Settings.TimerSeconds = seconds
	s.quiz.Settings.TimerMode = model.TimerMode(mode)
	return nil
}

func (s *deliveryScenario) givenSchedule(from, to int) error {
	s.quiz.Settings.SchedulingEnabled = true
	s.quiz.Settings.StartTime = s.second(from).Format(time.RFC3339)
	s.quiz.Settings.EndTime = s.second(to).Format(time.RFC3339)
	return nil
}

func (s *deliveryScenario) givenSplitScreenPrevention(warnings int) error {
	s.quiz.Settings.PreventSplitScreen = true
	s.quiz.Settings.AntiCheat.MaxWarnings = model.IntPtr(warnings)
	return nil
}

func (s *deliveryScenario) whenOpen(sec int) error {
	s.session = NewSession(s.quiz, artifactID, s.store, reporter.New(s.store, nil, zerolog.Nop()), zerolog.Nop())
	st, err := s.session.Open(context.Background(), s.second(sec))
	if err != nil {
		return err
	}
	s.state = st
	return nil
}

func (s *deliveryScenario) event(kind EventKind) func(int) error {
	return func(sec int) error {
		return s.dispatch(Event{Kind: kind, At: s.second(sec)})
	}
}

func (s *deliveryScenario) whenAnswer(text string, sec int) error {
	q, ok := s.quiz.Question(s.state.Current())
	if !ok {
		return fmt.Errorf("no current question in phase %s", s.state.Phase)
	}
	for _, c := range q.Choices {
		if c.Text == text {
			return s.dispatch(Event{Kind: EventAnswer, At: s.second(sec), Answer: model.Answer{ChoiceIDs: []string{c.ID}}})
		}
	}
	return fmt.Errorf("question %s has no choice %q", q.ID, text)
}

func (s *deliveryScenario) dispatch(ev Event) error {
	if s.session == nil {
		return fmt.Errorf("quiz not opened")
	}
	st, err := s.session.Dispatch(context.Background(), ev)
	if err != nil {
		return err
	}
	s.state = st
	return nil
}

func (s *deliveryScenario) result() (*model.SessionResult, error) {
	if s.session == nil || s.session.Result() == nil {
		return nil, fmt.Errorf("no result yet, phase %s", s.state.Phase)
	}
	return s.session.Result(), nil
}

func (s *deliveryScenario) thenPhase(phase string) error {
	if string(s.state.Phase) != phase {
		return fmt.Errorf("expected phase %s, got %s", phase, s.state.Phase)
	}
	return nil
}

func (s *deliveryScenario) thenBlocked(reason string) error {
	if s.state.Phase != PhaseBlocked || string(s.state.Blocked) != reason {
		return fmt.Errorf("expected blocked (%s), got %s (%s)", reason, s.state.Phase, s.state.Blocked)
	}
	return nil
}

func (s *deliveryScenario) thenNoQuestion() error {
	if len(s.state.Order) != 0 {
		return fmt.Errorf("expected no questions, got %v", s.state.Order)
	}
	return nil
}

func (s *deliveryScenario) thenScore(score, outOf int) error {
	res, err := s.result()
	if err != nil {
		return err
	}
	if res.Score != float64(score) || res.MaxScore != float64(outOf) {
		return fmt.Errorf("expected %d/%d, got %v/%v", score, outOf, res.Score, res.MaxScore)
	}
	return nil
}

func (s *deliveryScenario) thenTier(tier string) error {
	res, err := s.result()
	if err != nil {
		return err
	}
	if string(res.Tier) != tier {
		return fmt.Errorf("expected tier %s, got %s", tier, res.Tier)
	}
	return nil
}

func (s *deliveryScenario) thenStatus(status string) error {
	res, err := s.result()
	if err != nil {
		return err
	}
	if string(res.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, res.Status)
	}
	return nil
}

func (s *deliveryScenario) thenCurrentQuestion(n int) error {
	if s.state.Cursor != n-1 {
		return fmt.Errorf("expected question %d, at %d", n, s.state.Cursor+1)
	}
	return nil
}

func (s *deliveryScenario) thenRemaining(seconds int) error {
	left, ok := s.state.Remaining(s.state.LastSeen)
	if !ok {
		return fmt.Errorf("no timer running")
	}
	if left != time.Duration(seconds)*time.Second {
		return fmt.Errorf("expected %ds left, got %s", seconds, left)
	}
	return nil
}

func (s *deliveryScenario) thenWarning() error {
	if s.state.Warning == "" {
		return fmt.Errorf("no warning shown")
	}
	return nil
}

func (s *deliveryScenario) thenLocked() error {
	if !s.state.Locked {
		return fmt.Errorf("session not locked")
	}
	return nil
}
