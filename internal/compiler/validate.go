package compiler

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/scoring"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

var questionPath = regexp.MustCompile(`^questions\[(\d+)\]`)

// validate checks everything the runtime relies on, so the runtime can
// assume well-formed settings.
func validate(data *model.QuizData, loc *time.Location, found *issues) {
	if len(data.Questions) == 0 {
		found.add("", "questions", "quiz has no questions")
	}

	if err := validator.Struct(data); err != nil {
		fields := validator.TranslateErrors(err)
		paths := make([]string, 0, len(fields))
		for path := range fields {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			msg := fields[path]
			qid := ""
			if m := questionPath.FindStringSubmatch(path); m != nil {
				if i, convErr := strconv.Atoi(m[1]); convErr == nil && i < len(data.Questions) {
					qid = questionRef(&data.Questions[i], i)
				}
			}
			found.add(qid, path, "%s", msg)
		}
	}

	seen := make(map[string]struct{}, len(data.Questions))
	for i := range data.Questions {
		q := &data.Questions[i]
		ref := questionRef(q, i)
		if q.ID != "" {
			if _, dup := seen[q.ID]; dup {
				found.add(ref, "id", "duplicate question id")
			}
			seen[q.ID] = struct{}{}
		}
		validateQuestion(q, ref, found)
	}

	validateSettings(&data.Settings, loc, found)
}

// questionRef names a question in issues; questions without an id are
// referred to by position.
func questionRef(q *model.Question, index int) string {
	if q.ID != "" {
		return q.ID
	}
	return "#" + strconv.Itoa(index+1)
}

func validateQuestion(q *model.Question, ref string, found *issues) {
	choiceIDs := make(map[string]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		if c.ID == "" {
			continue
		}
		if _, dup := choiceIDs[c.ID]; dup {
			found.add(ref, "choices", "duplicate choice id %q", c.ID)
		}
		choiceIDs[c.ID] = struct{}{}
	}

	correct := len(q.CorrectChoiceIDs())
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		if len(q.Choices) < 2 {
			found.add(ref, "choices", "multiple choice needs at least 2 choices")
		}
		if correct == 0 {
			found.add(ref, "choices", "no choice is marked correct")
		}
	case model.QuestionTypeTrueFalse:
		if len(q.Choices) != 2 {
			found.add(ref, "choices", "true/false needs exactly 2 choices, got %d", len(q.Choices))
		}
		if correct != 1 {
			found.add(ref, "choices", "true/false needs exactly 1 correct choice, got %d", correct)
		}
	case model.QuestionTypeMatching:
		if len(q.Choices) < 2 {
			found.add(ref, "choices", "matching needs at least 2 pairs")
		}
		for _, c := range q.Choices {
			if c.MatchText == "" {
				found.add(ref, "choices", "choice %q has no match text", c.ID)
			}
		}
	case model.QuestionTypeOther:
		if len(q.Choices) > 0 && correct == 0 && q.CorrectAnswer == "" {
			found.add(ref, "choices", "choices are offered but none is marked correct")
		}
	}
}

func validateSettings(s *model.QuizSettings, loc *time.Location, found *issues) {
	switch s.Language {
	case model.LanguageEnglish, model.LanguageArabic:
	default:
		found.add("", "settings.language", "unsupported language %q", s.Language)
	}

	switch s.TimerMode {
	case model.TimerModeTotal, model.TimerModeQuestion:
	default:
		found.add("", "settings.timerMode", "unsupported timer mode %q", s.TimerMode)
	}
	if s.TimerEnabled && s.TimerSeconds <= 0 {
		found.add("", "settings.timerSeconds", "must be positive when the timer is enabled")
	}

	if s.SchedulingEnabled {
		var start, end time.Time
		var err error
		if s.StartTime != "" {
			if start, err = model.ParseScheduleTime(s.StartTime, loc); err != nil {
				found.add("", "settings.startTime", "%v", err)
			}
		}
		if s.EndTime != "" {
			if end, err = model.ParseScheduleTime(s.EndTime, loc); err != nil {
				found.add("", "settings.endTime", "%v", err)
			}
		}
		if s.StartTime == "" && s.EndTime == "" {
			found.add("", "settings.startTime", "scheduling is enabled but no window is set")
		}
		if !start.IsZero() && !end.IsZero() && !end.After(start) {
			found.add("", "settings.endTime", "must be after startTime")
		}
	}

	if !scoring.ValidBands(s.Bands()) {
		found.add("", "settings.feedbackBands", "thresholds must be strictly descending within 0..100")
	}

	switch s.AntiCheat.Reaction {
	case model.CheatReactionWarn, model.CheatReactionSubmit, model.CheatReactionLock:
	default:
		found.add("", "settings.antiCheat.reaction", "unsupported reaction %q", s.AntiCheat.Reaction)
	}

	switch s.ResumeClock {
	case model.ResumeClockPause, model.ResumeClockWall:
	default:
		found.add("", "settings.resumeClock", "unsupported resume clock %q", s.ResumeClock)
	}
}
