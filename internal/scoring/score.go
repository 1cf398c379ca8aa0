package scoring

import (
	"math"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// Summary is the scored outcome of a whole session.
type Summary struct {
	Score        float64
	MaxScore     float64
	Percent      float64
	Records      []model.AnswerRecord
	ManualReview []string
}

// Score grades every question in order. answers is keyed by question id;
// timedOut marks questions whose per-question timer expired.
func Score(quiz *model.QuizData, order []string, answers map[string]model.Answer, timedOut map[string]bool) Summary {
	var s Summary
	s.Records = make([]model.AnswerRecord, 0, len(order))

	for _, id := range order {
		q, ok := quiz.Question(id)
		if !ok {
			continue
		}
		rec := model.AnswerRecord{
			QuestionID: q.ID,
			Type:       q.Type,
			TimedOut:   timedOut[id],
		}
		var ans *model.Answer
		if a, ok := answers[id]; ok && !a.Empty() {
			a := a
			ans = &a
			rec.Answer = ans
		}

		switch Grade(q, ans) {
		case Manual:
			rec.ManualReview = true
			s.ManualReview = append(s.ManualReview, q.ID)
		case Correct:
			rec.Correct = true
			rec.Points = q.Points
			rec.MaxPoints = q.Points
			s.Score += q.Points
			s.MaxScore += q.Points
		default:
			rec.MaxPoints = q.Points
			s.MaxScore += q.Points
		}
		s.Records = append(s.Records, rec)
	}

	if s.MaxScore > 0 {
		s.Percent = math.Round(s.Score/s.MaxScore*10000) / 100
	}
	return s
}
