package engine

import (
	"fmt"
	"time"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// strike records a split-screen or focus-loss trigger and applies the
// configured reaction. Screen capture is handled separately and only
// obscures content: a browser cannot reliably prevent screenshots.
func (s *State) strike(cfg *model.QuizSettings, kind model.StrikeKind, at time.Time) {
	policy := cfg.AntiCheat
	reaction := policy.Reaction

	if reaction == model.CheatReactionWarn || reaction == "" {
		s.Warnings++
		if limit := policy.WarningLimit(); s.Warnings <= limit {
			s.Warning = fmt.Sprintf("Leaving the quiz window is not allowed (warning %d of %d).", s.Warnings, limit)
			s.Strikes = append(s.Strikes, model.Strike{Kind: kind, At: at, Reaction: string(model.CheatReactionWarn)})
			return
		}
		reaction = model.CheatReactionLock
	}

	s.Strikes = append(s.Strikes, model.Strike{Kind: kind, At: at, Reaction: string(reaction)})
	switch reaction {
	case model.CheatReactionSubmit:
		s.complete(model.SessionStatusViolation, at)
	case model.CheatReactionLock:
		s.Locked = true
		s.Warning = "The quiz is locked. Submit to finish."
	}
}
