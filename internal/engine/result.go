package engine

import (
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/scoring"
)

// BuildResult scores a completed (or abandoned) state. Abandoned sessions
// carry no score.
func BuildResult(quiz *model.QuizData, artifactID string, s *State) *model.SessionResult {
	cfg := &quiz.Settings
	res := &model.SessionResult{
		ArtifactID:       artifactID,
		SessionID:        s.SessionID,
		DeviceID:         s.DeviceID,
		Title:            cfg.Title,
		ClassName:        cfg.ClassName,
		Subject:          cfg.Subject,
		TakerName:        s.TakerName,
		Strikes:          append([]model.Strike(nil), s.Strikes...),
		StartedAt:        s.StartedAt,
		EndedAt:          s.EndedAt,
		AttemptIndex:     s.AttemptIndex,
		Status:           s.Status,
		ClockUnavailable: s.ClockUnavailable,
	}
	if s.Status == model.SessionStatusAbandoned {
		return res
	}

	sum := scoring.Score(quiz, s.Order, s.Answers, s.TimedOut)
	res.Answers = sum.Records
	res.Score = sum.Score
	res.MaxScore = sum.MaxScore
	res.Percent = sum.Percent
	res.ManualReview = sum.ManualReview
	res.Tier = scoring.TierFor(sum.Score, sum.MaxScore, cfg.Bands())
	res.FeedbackMessage = scoring.Message(res.Tier, cfg.FeedbackMessages)
	return res
}
