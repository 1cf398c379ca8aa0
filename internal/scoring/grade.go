package scoring

import (
	"github.com/stemsi/exstem-quiz/internal/model"
)

// Outcome is how a single question was graded.
type Outcome int

const (
	Incorrect Outcome = iota
	Correct
	// Manual questions contribute nothing automatically and are flagged
	// for review.
	Manual
)

// Grade decides a single question. A nil answer is unanswered.
func Grade(q *model.Question, a *model.Answer) Outcome {
	switch q.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeTrueFalse:
		return gradeChoices(q, a)
	case model.QuestionTypeMatching:
		return gradeMatching(q, a)
	case model.QuestionTypeFillBlank:
		return gradeText(q, a)
	case model.QuestionTypeEssay:
		return Manual
	default:
		switch {
		case len(q.CorrectChoiceIDs()) > 0:
			return gradeChoices(q, a)
		case q.CorrectAnswer != "":
			return gradeText(q, a)
		default:
			return Manual
		}
	}
}

// AutoScorable reports whether the question counts toward the automatic
// maximum score.
func AutoScorable(q *model.Question) bool {
	return Grade(q, nil) != Manual
}

// gradeChoices requires the selected set to equal the correct set exactly.
// Order and duplicates in the selection do not matter.
func gradeChoices(q *model.Question, a *model.Answer) Outcome {
	if a == nil || len(a.ChoiceIDs) == 0 {
		return Incorrect
	}
	correct := make(map[string]struct{})
	for _, id := range q.CorrectChoiceIDs() {
		correct[id] = struct{}{}
	}
	selected := make(map[string]struct{}, len(a.ChoiceIDs))
	for _, id := range a.ChoiceIDs {
		if _, ok := correct[id]; !ok {
			return Incorrect
		}
		selected[id] = struct{}{}
	}
	if len(selected) != len(correct) {
		return Incorrect
	}
	return Correct
}

// gradeMatching requires every choice to be paired with its own match text.
func gradeMatching(q *model.Question, a *model.Answer) Outcome {
	if a == nil || len(a.Pairs) != len(q.Choices) {
		return Incorrect
	}
	for _, c := range q.Choices {
		got, ok := a.Pairs[c.ID]
		if !ok || Normalize(got) != Normalize(c.MatchText) {
			return Incorrect
		}
	}
	return Correct
}

func gradeText(q *model.Question, a *model.Answer) Outcome {
	if Normalize(q.CorrectAnswer) == "" {
		return Manual
	}
	if a == nil {
		return Incorrect
	}
	if Normalize(a.Text) == Normalize(q.CorrectAnswer) {
		return Correct
	}
	return Incorrect
}
