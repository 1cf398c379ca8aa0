package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	timerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	urgentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
	chosenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).Padding(0, 2)
	problemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

var errChooseOne = errors.New("choose a single option")

type ui struct {
	quiz  *model.QuizData
	out   io.Writer
	width int
}

func newUI(quiz *model.QuizData, out io.Writer, width int) *ui {
	if width <= 0 || width > 100 {
		width = 80
	}
	return &ui{quiz: quiz, out: out, width: width}
}

func (u *ui) println(s string) {
	fmt.Fprintln(u.out, lipgloss.NewStyle().Width(u.width).Render(s))
}

func (u *ui) notice(msg string) { u.println(mutedStyle.Render(msg)) }

func (u *ui) problem(err error) { u.println(problemStyle.Render("! " + err.Error())) }

// changed reports whether the screen must be redrawn after a tick.
func (u *ui) changed(prev, next *engine.State) bool {
	if prev.Phase != next.Phase || prev.Cursor != next.Cursor ||
		prev.Locked != next.Locked || prev.Warning != next.Warning || prev.Obscured != next.Obscured {
		return true
	}
	// One reminder when a minute is left.
	before, ok1 := prev.Remaining(prev.LastSeen)
	after, ok2 := next.Remaining(next.LastSeen)
	return ok1 && ok2 && before > time.Minute && after <= time.Minute
}

func (u *ui) render(st *engine.State, res *model.SessionResult) {
	fmt.Fprintln(u.out)
	switch st.Phase {
	case engine.PhaseBlocked:
		u.renderBlocked(st)
	case engine.PhaseResumeOffer:
		u.println(titleStyle.Render(u.quiz.Settings.Title))
		u.println("You have an unfinished attempt on this device.")
		u.notice(":r resume   :d start over   :q quit")
	case engine.PhaseWelcome:
		u.renderWelcome(st)
	case engine.PhaseInProgress:
		u.renderQuestion(st)
	case engine.PhaseCompleted, engine.PhaseReported:
		u.renderResult(res)
	}
}

func (u *ui) renderBlocked(st *engine.State) {
	u.println(titleStyle.Render(u.quiz.Settings.Title))
	msg := st.BlockMessage
	if msg == "" {
		switch st.Blocked {
		case engine.BlockScheduleNotOpen:
			msg = "This quiz is not open yet."
		case engine.BlockScheduleClosed:
			msg = "This quiz is closed."
		case engine.BlockAttemptsExhausted:
			msg = "You have used all your attempts for this quiz."
		}
	}
	u.println(warnStyle.Render(msg))
	u.notice(":r check again   :q quit")
}

func (u *ui) renderWelcome(st *engine.State) {
	cfg := &u.quiz.Settings
	u.println(titleStyle.Render(cfg.Title))
	if cfg.WelcomeMessage != "" {
		u.println(cfg.WelcomeMessage)
	}
	if !cfg.SkipNameEntry && st.TakerName == "" {
		u.println("Type your name and press Enter:")
		return
	}
	u.notice("Starting...")
}

func (u *ui) renderQuestion(st *engine.State) {
	q, ok := u.quiz.Question(st.Current())
	if !ok {
		return
	}

	header := fmt.Sprintf("%s  ·  question %d of %d", u.quiz.Settings.Title, st.Cursor+1, len(st.Order))
	if left, ok := st.Remaining(st.LastSeen); ok {
		style := timerStyle
		if left <= time.Minute {
			style = urgentStyle
		}
		header += "  ·  " + style.Render(clock(left))
	}
	u.println(titleStyle.Render(header))

	if st.Warning != "" {
		u.println(warnStyle.Render(st.Warning))
	}
	if st.Locked {
		u.println(urgentStyle.Render("Answers are locked. Type :s to submit."))
	}

	u.println(q.Text)
	if q.Image != "" {
		u.notice("[image]")
	}

	ans := st.Answers[q.ID]
	switch {
	case q.Type == model.QuestionTypeMatching:
		opts := matchOptions(q)
		for i, c := range q.Choices {
			line := fmt.Sprintf("  %d. %s", i+1, c.Text)
			if got, ok := ans.Pairs[c.ID]; ok {
				line += " → " + chosenStyle.Render(got)
			}
			u.println(line)
		}
		for i, o := range opts {
			u.println(fmt.Sprintf("     %c) %s", 'a'+i, o))
		}
		u.notice("Answer as 1=a 2=c ...")
	case usesChoices(q):
		for i, c := range q.Choices {
			line := fmt.Sprintf("  %d. %s", i+1, c.Text)
			if contains(ans.ChoiceIDs, c.ID) {
				line = chosenStyle.Render(fmt.Sprintf("› %d. %s", i+1, c.Text))
			}
			u.println(line)
		}
		if len(q.CorrectChoiceIDs()) > 1 {
			u.notice("Several answers are correct: list them, e.g. 1,3")
		}
	default:
		if ans.Text != "" {
			u.println("Your answer: " + chosenStyle.Render(ans.Text))
		}
		u.notice("Type your answer and press Enter.")
	}

	nav := ":n next   :s submit   :q save and quit"
	if u.quiz.Settings.RevisitAllowed() {
		nav = ":n next   :p previous   :g N go to   :s submit   :q save and quit"
	}
	u.notice(nav)
}

func (u *ui) renderResult(res *model.SessionResult) {
	if res == nil {
		u.notice("Saving your result...")
		return
	}
	cfg := &u.quiz.Settings
	header := cfg.FinalScoreHeader
	if header == "" {
		header = "Your score"
	}
	u.println(titleStyle.Render(header))
	u.println(scoreStyle.Render(fmt.Sprintf("%s / %s  (%.0f%%)", points(res.Score), points(res.MaxScore), res.Percent)))
	if res.FeedbackMessage != "" {
		u.println(res.FeedbackMessage)
	}
	if len(res.ManualReview) > 0 {
		u.notice(fmt.Sprintf("%d answer(s) will be reviewed by your teacher.", len(res.ManualReview)))
	}
	switch res.Status {
	case model.SessionStatusTimedOut:
		u.notice("Submitted automatically when time ran out.")
	case model.SessionStatusViolation:
		u.notice("Submitted automatically after repeated violations.")
	}
	if phone := cfg.TeacherWhatsApp; phone != "" {
		msg := fmt.Sprintf("%s: %s scored %s/%s", cfg.Title, res.TakerName, points(res.Score), points(res.MaxScore))
		u.println("Send your result: https://wa.me/" + digits(phone) + "?text=" + url.QueryEscape(msg))
	}
}

// parse turns one input line into an event. A nil event with a nil error
// means the line only asked for a redraw.
func (u *ui) parse(st *engine.State, line string) (*engine.Event, bool, error) {
	line = strings.TrimSpace(line)
	if line == ":q" {
		return nil, true, nil
	}

	switch st.Phase {
	case engine.PhaseBlocked:
		if line == ":r" {
			return &engine.Event{Kind: engine.EventRetry}, false, nil
		}
	case engine.PhaseResumeOffer:
		switch line {
		case ":r":
			return &engine.Event{Kind: engine.EventResume}, false, nil
		case ":d":
			return &engine.Event{Kind: engine.EventDiscard}, false, nil
		}
	case engine.PhaseWelcome:
		if line != "" {
			return &engine.Event{Kind: engine.EventEnterName, Name: line}, false, nil
		}
	case engine.PhaseInProgress:
		return u.parseInProgress(st, line)
	}
	return nil, false, nil
}

func (u *ui) parseInProgress(st *engine.State, line string) (*engine.Event, bool, error) {
	switch {
	case line == "":
		return nil, false, nil
	case line == ":n":
		return &engine.Event{Kind: engine.EventNext}, false, nil
	case line == ":p":
		return &engine.Event{Kind: engine.EventPrev}, false, nil
	case line == ":s":
		return &engine.Event{Kind: engine.EventSubmit}, false, nil
	case strings.HasPrefix(line, ":g"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, ":g")))
		if err != nil {
			return nil, false, fmt.Errorf("go to which question? e.g. :g 3")
		}
		return &engine.Event{Kind: engine.EventGoto, Index: n - 1}, false, nil
	case strings.HasPrefix(line, ":"):
		return nil, false, fmt.Errorf("unknown command %s", line)
	}

	q, ok := u.quiz.Question(st.Current())
	if !ok {
		return nil, false, nil
	}
	ans, err := parseAnswer(q, line)
	if err != nil {
		return nil, false, err
	}
	return &engine.Event{Kind: engine.EventAnswer, QuestionID: q.ID, Answer: ans}, false, nil
}

func parseAnswer(q *model.Question, line string) (model.Answer, error) {
	switch {
	case q.Type == model.QuestionTypeMatching:
		return parsePairs(q, line)
	case usesChoices(q):
		var ids []string
		for _, tok := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.Atoi(tok)
			if err != nil || n < 1 || n > len(q.Choices) {
				return model.Answer{}, fmt.Errorf("pick a number between 1 and %d", len(q.Choices))
			}
			id := q.Choices[n-1].ID
			if !contains(ids, id) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 1 && len(q.CorrectChoiceIDs()) <= 1 {
			return model.Answer{}, errChooseOne
		}
		return model.Answer{ChoiceIDs: ids}, nil
	default:
		return model.Answer{Text: line}, nil
	}
}

func parsePairs(q *model.Question, line string) (model.Answer, error) {
	opts := matchOptions(q)
	pairs := make(map[string]string)
	for _, tok := range strings.Fields(strings.ReplaceAll(line, ",", " ")) {
		left, right, ok := strings.Cut(tok, "=")
		n, err := strconv.Atoi(left)
		if !ok || err != nil || n < 1 || n > len(q.Choices) || len(right) != 1 {
			return model.Answer{}, fmt.Errorf("write pairs like 1=a, got %q", tok)
		}
		idx := int(right[0] - 'a')
		if idx < 0 || idx >= len(opts) {
			return model.Answer{}, fmt.Errorf("no option %q", right)
		}
		pairs[q.Choices[n-1].ID] = opts[idx]
	}
	return model.Answer{Pairs: pairs}, nil
}

// matchOptions is the right-hand column, sorted so the answer position
// gives nothing away.
func matchOptions(q *model.Question) []string {
	opts := make([]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		if c.MatchText != "" && !contains(opts, c.MatchText) {
			opts = append(opts, c.MatchText)
		}
	}
	sort.Strings(opts)
	return opts
}

func usesChoices(q *model.Question) bool {
	switch q.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeTrueFalse:
		return true
	case model.QuestionTypeOther:
		return len(q.Choices) > 0
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func points(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
