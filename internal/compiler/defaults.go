package compiler

import (
	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/scoring"
)

// DefaultSettings returns the settings every quiz starts from. Fields the
// author leaves at their zero value are filled from here at compile time.
func DefaultSettings() model.QuizSettings {
	bands := scoring.DefaultBands
	return model.QuizSettings{
		Language:          model.LanguageEnglish,
		Title:             "Quiz",
		TimerMode:         model.TimerModeTotal,
		WelcomeMessage:    "Welcome! Read each question carefully.",
		FinalScoreHeader:  "Your score",
		SchedulingMessage: "This quiz is not available right now.",
		Appearance: model.QuizAppearance{
			BackgroundColor:    "#f8fafc",
			AnswerBoxBg:        "#ffffff",
			AnswerTextColor:    "#1e293b",
			SelectedColor:      "#4f46e5",
			SelectedTextColor:  "#ffffff",
			FontSizeChoices:    "medium",
			SpacingChoices:     "normal",
			BorderStyle:        "solid",
			AnswerBoxShape:     "rounded",
			BoxEffect:          "shadow",
			TransitionEffect:   "fade",
			AnswerAnimation:    "none",
			QuestionImageStyle: "contain",
		},
		Branding: model.BrandingConfig{
			Position:   "bottom",
			TextLayout: "horizontal",
			LogoWidth:  48,
			LogoHeight: 48,
			TextColor:  "#64748b",
			FontSize:   12,
			FontFamily: "system-ui, sans-serif",
		},
		FeedbackMessages: model.FeedbackMessages{
			FullMark:  "Full mark! Outstanding work.",
			Excellent: "Excellent!",
			VeryGood:  "Very good.",
			Good:      "Good.",
			Fair:      "Fair. Review the lesson and try again.",
			Poor:      "Keep practicing.",
		},
		FeedbackBands: &bands,
		AllowRevisit:  model.BoolPtr(true),
		AntiCheat: model.AntiCheatPolicy{
			Reaction:    model.CheatReactionWarn,
			MaxWarnings: model.IntPtr(model.DefaultMaxWarnings),
		},
		ResumeClock: model.ResumeClockPause,
	}
}

// withDefaults merges the defaults under the authored settings. Optional
// policy fields are pointers and are not dereferenced, so an authored
// false or 0 is kept and only a missing field takes its default.
func withDefaults(s model.QuizSettings) (model.QuizSettings, error) {
	if err := mergo.Merge(&s, DefaultSettings(), mergo.WithoutDereference); err != nil {
		return s, errors.Wrap(err, "merge default settings")
	}
	return s, nil
}
