package model

import (
	"fmt"
	"strings"
	"time"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// Dir returns the text direction for the language.
func (l Language) Dir() string {
	if l == LanguageArabic {
		return "rtl"
	}
	return "ltr"
}

type TimerMode string

const (
	TimerModeTotal    TimerMode = "total"
	TimerModeQuestion TimerMode = "question"
)

// CheatReaction is what the runtime does when a split-screen strike is recorded.
type CheatReaction string

const (
	// CheatReactionWarn warns until the warning budget is spent, then locks.
	CheatReactionWarn   CheatReaction = "warn"
	CheatReactionSubmit CheatReaction = "submit"
	CheatReactionLock   CheatReaction = "lock"
)

// ResumeClock decides whether time spent with the document closed counts
// against a total-mode timer.
type ResumeClock string

const (
	ResumeClockPause ResumeClock = "pause"
	ResumeClockWall  ResumeClock = "wall"
)

type QuizAppearance struct {
	BackgroundColor    string `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	BackgroundImage    string `json:"backgroundImage,omitempty" yaml:"backgroundImage,omitempty"`
	AnswerBoxBg        string `json:"answerBoxBg,omitempty" yaml:"answerBoxBg,omitempty"`
	AnswerTextColor    string `json:"answerTextColor,omitempty" yaml:"answerTextColor,omitempty"`
	SelectedColor      string `json:"selectedColor,omitempty" yaml:"selectedColor,omitempty"`
	SelectedTextColor  string `json:"selectedTextColor,omitempty" yaml:"selectedTextColor,omitempty"`
	FontSizeChoices    string `json:"fontSizeChoices,omitempty" yaml:"fontSizeChoices,omitempty"`
	SpacingChoices     string `json:"spacingChoices,omitempty" yaml:"spacingChoices,omitempty"`
	BorderStyle        string `json:"borderStyle,omitempty" yaml:"borderStyle,omitempty"`
	ShowSideColumn     bool   `json:"showSideColumn,omitempty" yaml:"showSideColumn,omitempty"`
	AnswerBoxShape     string `json:"answerBoxShape,omitempty" yaml:"answerBoxShape,omitempty"`
	BoxEffect          string `json:"boxEffect,omitempty" yaml:"boxEffect,omitempty"`
	TransitionEffect   string `json:"transitionEffect,omitempty" yaml:"transitionEffect,omitempty"`
	AnswerAnimation    string `json:"answerAnimation,omitempty" yaml:"answerAnimation,omitempty"`
	QuestionImageStyle string `json:"questionImageStyle,omitempty" yaml:"questionImageStyle,omitempty"`
}

// CloudConfig points the reporter at a cloud folder. FirebaseConfig is kept
// verbatim for editors that still write it; the runtime only uses CloudURL.
type CloudConfig struct {
	FirebaseConfig string `json:"firebaseConfig,omitempty" yaml:"firebaseConfig,omitempty"`
	CloudURL       string `json:"cloudUrl,omitempty" yaml:"cloudUrl,omitempty" binding:"omitempty,url"`
	FolderName     string `json:"folderName,omitempty" yaml:"folderName,omitempty" binding:"omitempty,max=128"`
	SyncGrades     bool   `json:"syncGrades,omitempty" yaml:"syncGrades,omitempty"`
	SyncTests      bool   `json:"syncTests,omitempty" yaml:"syncTests,omitempty"`
	SyncBank       bool   `json:"syncBank,omitempty" yaml:"syncBank,omitempty"`
}

// Enabled reports whether any network delivery is configured at all.
func (c CloudConfig) Enabled() bool {
	return c.CloudURL != "" && c.FolderName != ""
}

type BrandingConfig struct {
	DesignerName string `json:"designerName,omitempty" yaml:"designerName,omitempty"`
	DesignerLogo string `json:"designerLogo,omitempty" yaml:"designerLogo,omitempty"`
	Position     string `json:"position,omitempty" yaml:"position,omitempty"`
	TextLayout   string `json:"textLayout,omitempty" yaml:"textLayout,omitempty"`
	LogoWidth    int    `json:"logoWidth,omitempty" yaml:"logoWidth,omitempty"`
	LogoHeight   int    `json:"logoHeight,omitempty" yaml:"logoHeight,omitempty"`
	TextColor    string `json:"textColor,omitempty" yaml:"textColor,omitempty"`
	FontSize     int    `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	FontFamily   string `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
}

// FeedbackMessages are the six tier messages shown with the final score.
type FeedbackMessages struct {
	FullMark  string `json:"fullMark,omitempty" yaml:"fullMark,omitempty"`
	Excellent string `json:"excellent,omitempty" yaml:"excellent,omitempty"`
	VeryGood  string `json:"veryGood,omitempty" yaml:"veryGood,omitempty"`
	Good      string `json:"good,omitempty" yaml:"good,omitempty"`
	Fair      string `json:"fair,omitempty" yaml:"fair,omitempty"`
	Poor      string `json:"poor,omitempty" yaml:"poor,omitempty"`
}

// FeedbackBands are the lower percentage bounds of each tier below fullMark.
// Anything under Fair is poor, so Fair 0 removes the poor tier. An authored
// band set replaces the defaults as a whole.
type FeedbackBands struct {
	Excellent float64 `json:"excellent" yaml:"excellent"`
	VeryGood  float64 `json:"veryGood" yaml:"veryGood"`
	Good      float64 `json:"good" yaml:"good"`
	Fair      float64 `json:"fair" yaml:"fair"`
}

// DefaultFeedbackBands apply when a quiz configures no bands.
var DefaultFeedbackBands = FeedbackBands{
	Excellent: 90,
	VeryGood:  75,
	Good:      60,
	Fair:      40,
}

// DefaultMaxWarnings is how many warn-mode strikes are tolerated before the
// session locks when the quiz does not say.
const DefaultMaxWarnings = 2

type AntiCheatPolicy struct {
	Reaction    CheatReaction `json:"reaction,omitempty" yaml:"reaction,omitempty"`
	MaxWarnings *int          `json:"maxWarnings,omitempty" yaml:"maxWarnings,omitempty" binding:"omitempty,min=0"`
}

// WarningLimit is the number of warnings before a warn-mode strike locks.
// An explicit 0 locks on the first strike.
func (p AntiCheatPolicy) WarningLimit() int {
	if p.MaxWarnings == nil {
		return DefaultMaxWarnings
	}
	return *p.MaxWarnings
}

// QuizSettings carries presentation and behaviour settings for one quiz.
type QuizSettings struct {
	Language           Language         `json:"language,omitempty" yaml:"language,omitempty"`
	Title              string           `json:"title" yaml:"title" binding:"max=255"`
	ClassName          string           `json:"className,omitempty" yaml:"className,omitempty"`
	Subject            string           `json:"subject,omitempty" yaml:"subject,omitempty"`
	Branch             string           `json:"branch,omitempty" yaml:"branch,omitempty"`
	Unit               string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	Lesson             string           `json:"lesson,omitempty" yaml:"lesson,omitempty"`
	TimerEnabled       bool             `json:"timerEnabled" yaml:"timerEnabled"`
	TimerMode          TimerMode        `json:"timerMode,omitempty" yaml:"timerMode,omitempty"`
	TimerSeconds       int              `json:"timerSeconds,omitempty" yaml:"timerSeconds,omitempty" binding:"min=0"`
	TeacherWhatsApp    string           `json:"teacherWhatsApp,omitempty" yaml:"teacherWhatsApp,omitempty"`
	SkipNameEntry      bool             `json:"skipNameEntry" yaml:"skipNameEntry"`
	WelcomeMessage     string           `json:"welcomeMessage,omitempty" yaml:"welcomeMessage,omitempty"`
	MessageDuration    int              `json:"messageDuration,omitempty" yaml:"messageDuration,omitempty" binding:"min=0"`
	MaxAttempts        int              `json:"maxAttempts" yaml:"maxAttempts" binding:"min=0"`
	Appearance         QuizAppearance   `json:"appearance" yaml:"appearance"`
	CloudConfig        CloudConfig      `json:"cloudConfig" yaml:"cloudConfig"`
	Branding           BrandingConfig   `json:"branding" yaml:"branding"`
	FeedbackMessages   FeedbackMessages `json:"feedbackMessages" yaml:"feedbackMessages"`
	FinalScoreHeader   string           `json:"finalScoreHeader,omitempty" yaml:"finalScoreHeader,omitempty"`
	SchedulingEnabled  bool             `json:"schedulingEnabled" yaml:"schedulingEnabled"`
	ShuffleQuestions   bool             `json:"shuffleQuestions" yaml:"shuffleQuestions"`
	StartTime          string           `json:"startTime,omitempty" yaml:"startTime,omitempty"`
	EndTime            string           `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	SchedulingMessage  string           `json:"schedulingMessage,omitempty" yaml:"schedulingMessage,omitempty"`
	PreventSplitScreen bool             `json:"preventSplitScreen" yaml:"preventSplitScreen"`
	PreventScreenshot  bool             `json:"preventScreenshot" yaml:"preventScreenshot"`
	OfflineMode        bool             `json:"offlineMode" yaml:"offlineMode"`
	DesignerName       string           `json:"designerName,omitempty" yaml:"designerName,omitempty"`
	DesignerLogo       string           `json:"designerLogo,omitempty" yaml:"designerLogo,omitempty"`
	CopyrightPosition  string           `json:"copyrightPosition,omitempty" yaml:"copyrightPosition,omitempty"`
	DefaultStage       EducationStage   `json:"defaultStage,omitempty" yaml:"defaultStage,omitempty"`
	DefaultGrade       string           `json:"defaultGrade,omitempty" yaml:"defaultGrade,omitempty"`
	DefaultSemester    Semester         `json:"defaultSemester,omitempty" yaml:"defaultSemester,omitempty"`

	FeedbackBands *FeedbackBands  `json:"feedbackBands,omitempty" yaml:"feedbackBands,omitempty"`
	AllowRevisit  *bool           `json:"allowRevisit,omitempty" yaml:"allowRevisit,omitempty"`
	AntiCheat     AntiCheatPolicy `json:"antiCheat" yaml:"antiCheat"`
	ResumeClock   ResumeClock     `json:"resumeClock,omitempty" yaml:"resumeClock,omitempty"`
}

// Bands returns the configured feedback bands or the defaults.
func (s *QuizSettings) Bands() FeedbackBands {
	if s.FeedbackBands == nil {
		return DefaultFeedbackBands
	}
	return *s.FeedbackBands
}

// RevisitAllowed reports whether the taker may navigate back to earlier
// questions. Per-question timers always forbid it.
func (s *QuizSettings) RevisitAllowed() bool {
	if s.TimerEnabled && s.TimerMode == TimerModeQuestion {
		return false
	}
	return s.AllowRevisit == nil || *s.AllowRevisit
}

// scheduleLayouts are the accepted startTime/endTime encodings. The editor
// writes datetime-local values without a zone.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseScheduleTime parses a scheduling timestamp. Zone-less values are
// interpreted in loc.
func ParseScheduleTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// Window returns the parsed scheduling window. Missing bounds are zero.
func (s *QuizSettings) Window() (start, end time.Time, err error) {
	if s.StartTime != "" {
		if start, err = ParseScheduleTime(s.StartTime, time.UTC); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("startTime: %w", err)
		}
	}
	if s.EndTime != "" {
		if end, err = ParseScheduleTime(s.EndTime, time.UTC); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("endTime: %w", err)
		}
	}
	return start, end, nil
}

// BoolPtr is a convenience for optional boolean settings.
func BoolPtr(b bool) *bool {
	return &b
}

func IntPtr(n int) *int {
	return &n
}
