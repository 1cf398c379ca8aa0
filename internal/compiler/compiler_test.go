package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func sampleQuiz() model.QuizData {
	return model.QuizData{
		Questions: []model.Question{
			{
				ID:     "q1",
				Type:   model.QuestionTypeMultipleChoice,
				Text:   "2 + 2 = ?",
				Points: 10,
				Choices: []model.Choice{
					{ID: "a", Text: "3"},
					{ID: "b", Text: "4", IsCorrect: true},
				},
			},
			{
				ID:     "q2",
				Type:   model.QuestionTypeTrueFalse,
				Text:   "The sun is a star.",
				Points: 5,
				Choices: []model.Choice{
					{ID: "t", Text: "True", IsCorrect: true},
					{ID: "f", Text: "False"},
				},
			},
			{
				ID:            "q3",
				Type:          model.QuestionTypeFillBlank,
				Text:          "The capital of Egypt is ___.",
				CorrectAnswer: "Cairo",
				Points:        5,
			},
		},
		Settings: model.QuizSettings{
			Title:         "Grade 5 Science",
			TimerEnabled:  true,
			TimerSeconds:  600,
			SkipNameEntry: true,
		},
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	a, err := Compile(sampleQuiz(), Options{})
	require.NoError(t, err)
	b, err := Compile(sampleQuiz(), Options{})
	require.NoError(t, err)

	assert.Equal(t, a.ArtifactID, b.ArtifactID)
	assert.Equal(t, a.HTML, b.HTML)
	assert.Len(t, a.ArtifactID, 32)
	assert.Equal(t, "grade_5_science.html", a.FileName)
}

func TestCompileProducesSelfContainedDocument(t *testing.T) {
	doc, err := Compile(sampleQuiz(), Options{})
	require.NoError(t, err)
	html := string(doc.HTML)

	assert.True(t, strings.HasPrefix(html, "<!doctype html><html"))
	assert.Contains(t, html, `<meta name="quiz-artifact" content="`+doc.ArtifactID+`">`)
	assert.Contains(t, html, `id="quiz-data"`)
	assert.Contains(t, html, `id="screen-question"`)
	assert.NotContains(t, html, `src="http`)
	assert.NotContains(t, html, `<link `)
}

func TestShellRendersHeaderAndBranding(t *testing.T) {
	data := sampleQuiz()
	data.Settings.ClassName = "5B"
	data.Settings.Subject = "Science & Nature"
	data.Settings.DesignerName = "Ms. Huda"
	data.Settings.Branding.TextColor = "#123456"

	doc, err := Compile(data, Options{})
	require.NoError(t, err)
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.HTML))
	require.NoError(t, err)

	assert.Equal(t, "5B · Science & Nature", page.Find("p.quiz-meta").Text())
	assert.Contains(t, string(doc.HTML), "Science &amp; Nature")
	assert.True(t, page.Find("body").HasClass("shape-rounded"))

	footer := page.Find("footer.branding")
	require.Equal(t, 1, footer.Length())
	assert.True(t, footer.HasClass("branding-bottom"))
	assert.True(t, footer.HasClass("layout-horizontal"))
	assert.Equal(t, "Ms. Huda", footer.Find("span").Text())
	assert.Contains(t, page.Find("style").Text(), ".branding{color:#123456;font-size:12px;")

	plain, err := Compile(sampleQuiz(), Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(plain.HTML), "<footer")
}

func TestCompileFillsDefaults(t *testing.T) {
	data := sampleQuiz()
	data.Settings.Title = ""

	doc, err := Compile(data, Options{})
	require.NoError(t, err)

	s := doc.Quiz.Settings
	assert.Equal(t, "Quiz", s.Title)
	assert.Equal(t, "quiz.html", doc.FileName)
	assert.Equal(t, model.LanguageEnglish, s.Language)
	assert.Equal(t, model.TimerModeTotal, s.TimerMode)
	assert.NotEmpty(t, s.FeedbackMessages.FullMark)
	assert.Equal(t, model.CheatReactionWarn, s.AntiCheat.Reaction)
	assert.Equal(t, model.DefaultMaxWarnings, s.AntiCheat.WarningLimit())
	assert.Equal(t, model.DefaultFeedbackBands, s.Bands())
	require.NotNil(t, s.AllowRevisit)
	assert.True(t, *s.AllowRevisit)
}

func TestCompileKeepsAuthoredSettings(t *testing.T) {
	data := sampleQuiz()
	data.Settings.Language = model.LanguageArabic
	data.Settings.AllowRevisit = model.BoolPtr(false)
	data.Settings.FeedbackMessages.Poor = "حاول مرة أخرى"

	doc, err := Compile(data, Options{})
	require.NoError(t, err)

	assert.Equal(t, "حاول مرة أخرى", doc.Quiz.Settings.FeedbackMessages.Poor)
	assert.False(t, *doc.Quiz.Settings.AllowRevisit)
	assert.Contains(t, string(doc.HTML), `<html lang="ar" dir="rtl">`)
}

func TestCompileKeepsExplicitZeroPolicies(t *testing.T) {
	data := sampleQuiz()
	data.Settings.AntiCheat.MaxWarnings = model.IntPtr(0)
	data.Settings.FeedbackBands = &model.FeedbackBands{Excellent: 80, VeryGood: 60, Good: 30, Fair: 0}

	doc, err := Compile(data, Options{})
	require.NoError(t, err)

	s := doc.Quiz.Settings
	require.NotNil(t, s.AntiCheat.MaxWarnings)
	assert.Equal(t, 0, s.AntiCheat.WarningLimit())
	assert.Equal(t, model.FeedbackBands{Excellent: 80, VeryGood: 60, Good: 30, Fair: 0}, s.Bands())
	assert.Contains(t, string(doc.Payload), `"fair":0`)
	assert.Contains(t, string(doc.Payload), `"maxWarnings":0`)

	got, err := ReadDocument(bytes.NewReader(doc.HTML))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quiz.Settings.AntiCheat.WarningLimit())
}

func TestCompileReportsEveryInvalidQuestion(t *testing.T) {
	data := sampleQuiz()
	data.Questions[0].Choices[1].IsCorrect = false
	data.Questions[1].Choices = append(data.Questions[1].Choices, model.Choice{ID: "x", Text: "Maybe"})

	doc, err := Compile(data, Options{})
	require.Error(t, err)
	assert.Nil(t, doc)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"q1", "q2"}, ve.QuestionIDs)
	assert.Contains(t, err.Error(), "no choice is marked correct")
	assert.Contains(t, err.Error(), "exactly 2 choices")
}

func TestCompileRejectsEmptyQuiz(t *testing.T) {
	_, err := Compile(model.QuizData{}, Options{})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, ve.QuestionIDs)
	assert.Equal(t, "questions", ve.Issues[0].Field)
}

func TestCompileRejectsBadSettings(t *testing.T) {
	cases := map[string]func(s *model.QuizSettings){
		"timer without duration": func(s *model.QuizSettings) { s.TimerSeconds = 0 },
		"unknown timer mode":     func(s *model.QuizSettings) { s.TimerMode = "lap" },
		"inverted window": func(s *model.QuizSettings) {
			s.SchedulingEnabled = true
			s.StartTime = "2026-05-04T10:00"
			s.EndTime = "2026-05-04T09:00"
		},
		"bands out of order": func(s *model.QuizSettings) {
			s.FeedbackBands = &model.FeedbackBands{Excellent: 50, VeryGood: 60, Good: 40, Fair: 20}
		},
		"unknown reaction": func(s *model.QuizSettings) { s.AntiCheat.Reaction = "explode" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			data := sampleQuiz()
			mutate(&data.Settings)
			_, err := Compile(data, Options{})
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestCompileInlinesRelativeImages(t *testing.T) {
	data := sampleQuiz()
	data.Questions[0].Image = "./img/sum.png"
	data.Questions[0].Choices[0].Image = "img/sum.png"

	assets := fstest.MapFS{"img/sum.png": &fstest.MapFile{Data: pngBytes}}
	doc, err := Compile(data, Options{Assets: assets})
	require.NoError(t, err)

	q := doc.Quiz.Questions[0]
	assert.True(t, strings.HasPrefix(q.Image, "data:image/png;base64,"), q.Image)
	assert.Equal(t, q.Image, q.Choices[0].Image)
	assert.NotContains(t, string(doc.HTML), "img/sum.png")
	assert.Equal(t, "./img/sum.png", data.Questions[0].Image, "input untouched")
}

func TestCompileRejectsUnresolvableAssets(t *testing.T) {
	cases := map[string]string{
		"external url":   "https://cdn.example.com/a.png",
		"protocol url":   "//cdn.example.com/a.png",
		"not an image":   "data:text/plain,hello",
		"missing file":   "img/missing.png",
		"malformed data": "data:image/png;base64",
	}
	for name, ref := range cases {
		t.Run(name, func(t *testing.T) {
			data := sampleQuiz()
			data.Questions[1].Image = ref
			_, err := Compile(data, Options{Assets: fstest.MapFS{}})

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, []string{"q2"}, ve.QuestionIDs)
		})
	}
}

func TestCompileRelativeImageNeedsAssetSource(t *testing.T) {
	data := sampleQuiz()
	data.Settings.Appearance.BackgroundImage = "bg.png"

	_, err := Compile(data, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings.appearance.backgroundImage")
}

func TestCompileNormalizesScheduleToUTC(t *testing.T) {
	data := sampleQuiz()
	data.Settings.SchedulingEnabled = true
	data.Settings.StartTime = "2026-05-04T10:00"
	data.Settings.EndTime = "2026-05-04 12:30"

	doc, err := Compile(data, Options{Location: time.FixedZone("EET", 2*60*60)})
	require.NoError(t, err)
	assert.Equal(t, "2026-05-04T08:00:00Z", doc.Quiz.Settings.StartTime)
	assert.Equal(t, "2026-05-04T10:30:00Z", doc.Quiz.Settings.EndTime)
}

func TestCompileEscapesAuthoredText(t *testing.T) {
	data := sampleQuiz()
	data.Settings.Title = `</script><script>alert(1)</script>`
	data.Questions[0].Text = `<img src=x onerror=alert(1)>`

	doc, err := Compile(data, Options{})
	require.NoError(t, err)
	html := string(doc.HTML)

	assert.NotContains(t, html, "<script>alert(1)")
	assert.NotContains(t, html, "<img src=x")
	assert.Equal(t, 2, strings.Count(html, "</script>"), "only the payload and runtime scripts close")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "grade_5_fractions.html", FileName("  Grade 5\tFractions "))
	assert.Equal(t, "quiz.html", FileName("   "))
}

func TestReadDocumentRoundTrip(t *testing.T) {
	doc, err := Compile(sampleQuiz(), Options{})
	require.NoError(t, err)

	got, err := ReadDocument(bytes.NewReader(doc.HTML))
	require.NoError(t, err)
	assert.Equal(t, doc.ArtifactID, got.ArtifactID)
	assert.Equal(t, doc.Payload, got.Payload)
	assert.Equal(t, doc.Quiz.Questions, got.Quiz.Questions)
	assert.Equal(t, doc.FileName, got.FileName)
}

func TestReadDocumentRefusesEditedPayload(t *testing.T) {
	doc, err := Compile(sampleQuiz(), Options{})
	require.NoError(t, err)

	edited := bytes.Replace(doc.HTML, []byte(`"isCorrect":true`), []byte(`"isCorrect":false`), 1)
	_, err = ReadDocument(bytes.NewReader(edited))
	assert.ErrorIs(t, err, ErrArtifactModified)
}

func TestReadDocumentRefusesOtherHTML(t *testing.T) {
	_, err := ReadDocument(strings.NewReader("<html><body><p>hi</p></body></html>"))
	assert.ErrorIs(t, err, ErrNotAnArtifact)
}
