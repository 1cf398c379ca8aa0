package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/model"
)

func mcQuestion() model.Question {
	return model.Question{
		ID:     "q1",
		Type:   model.QuestionTypeMultipleChoice,
		Points: 5,
		Choices: []model.Choice{
			{ID: "a", Text: "2", IsCorrect: true},
			{ID: "b", Text: "3"},
			{ID: "c", Text: "4", IsCorrect: true},
		},
	}
}

func TestGradeMultipleChoiceIsSetEquality(t *testing.T) {
	q := mcQuestion()

	cases := []struct {
		name   string
		chosen []string
		want   Outcome
	}{
		{"exact set", []string{"a", "c"}, Correct},
		{"order independent", []string{"c", "a"}, Correct},
		{"duplicates ignored", []string{"a", "c", "a"}, Correct},
		{"subset", []string{"a"}, Incorrect},
		{"superset", []string{"a", "b", "c"}, Incorrect},
		{"wrong", []string{"b"}, Incorrect},
		{"empty", nil, Incorrect},
		{"unknown id", []string{"a", "z"}, Incorrect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Grade(&q, &model.Answer{ChoiceIDs: tc.chosen}))
		})
	}
	assert.Equal(t, Incorrect, Grade(&q, nil))
}

func TestGradeMatching(t *testing.T) {
	q := model.Question{
		ID:   "m",
		Type: model.QuestionTypeMatching,
		Choices: []model.Choice{
			{ID: "1", Text: "Cairo", MatchText: "Egypt"},
			{ID: "2", Text: "Paris", MatchText: "France"},
		},
	}

	assert.Equal(t, Correct, Grade(&q, &model.Answer{Pairs: map[string]string{"1": "Egypt", "2": " france "}}))
	assert.Equal(t, Incorrect, Grade(&q, &model.Answer{Pairs: map[string]string{"1": "France", "2": "Egypt"}}))
	assert.Equal(t, Incorrect, Grade(&q, &model.Answer{Pairs: map[string]string{"1": "Egypt"}}))
}

func TestGradeFillBlankUsesNormalization(t *testing.T) {
	q := model.Question{ID: "f", Type: model.QuestionTypeFillBlank, CorrectAnswer: "Photo  Synthesis"}

	assert.Equal(t, Correct, Grade(&q, &model.Answer{Text: "  photo synthesis "}))
	assert.Equal(t, Correct, Grade(&q, &model.Answer{Text: "PHOTO\tSYNTHESIS"}))
	assert.Equal(t, Incorrect, Grade(&q, &model.Answer{Text: "photosynthesis"}))

	q.CorrectAnswer = "  "
	assert.Equal(t, Manual, Grade(&q, &model.Answer{Text: "anything"}))
}

func TestNormalizeComposesUnicode(t *testing.T) {
	// "é" precomposed versus "e" + combining acute.
	assert.Equal(t, Normalize("caf\u00e9"), Normalize("cafe\u0301"))
	assert.Equal(t, "strasse", Normalize("STRASSE"))
}

func TestGradeEssayAndOther(t *testing.T) {
	essay := model.Question{ID: "e", Type: model.QuestionTypeEssay, Points: 10}
	assert.Equal(t, Manual, Grade(&essay, &model.Answer{Text: "long answer"}))
	assert.False(t, AutoScorable(&essay))

	other := model.Question{ID: "o", Type: model.QuestionTypeOther, CorrectAnswer: "blue"}
	assert.Equal(t, Correct, Grade(&other, &model.Answer{Text: "Blue"}))

	otherChoices := model.Question{ID: "o2", Type: model.QuestionTypeOther, Choices: []model.Choice{{ID: "x", IsCorrect: true}}}
	assert.Equal(t, Correct, Grade(&otherChoices, &model.Answer{ChoiceIDs: []string{"x"}}))

	bare := model.Question{ID: "o3", Type: model.QuestionTypeOther}
	assert.Equal(t, Manual, Grade(&bare, nil))
}

func TestScoreExcludesEssayFromMaximum(t *testing.T) {
	quiz := &model.QuizData{Questions: []model.Question{
		mcQuestion(),
		{ID: "e", Type: model.QuestionTypeEssay, Points: 10},
		{ID: "f", Type: model.QuestionTypeFillBlank, CorrectAnswer: "x", Points: 5},
	}}
	answers := map[string]model.Answer{
		"q1": {ChoiceIDs: []string{"a", "c"}},
		"e":  {Text: "essay"},
	}

	s := Score(quiz, []string{"q1", "e", "f"}, answers, map[string]bool{"f": true})

	assert.Equal(t, 5.0, s.Score)
	assert.Equal(t, 10.0, s.MaxScore)
	assert.Equal(t, 50.0, s.Percent)
	assert.Equal(t, []string{"e"}, s.ManualReview)
	require.Len(t, s.Records, 3)
	assert.True(t, s.Records[0].Correct)
	assert.True(t, s.Records[1].ManualReview)
	assert.Zero(t, s.Records[1].Points)
	assert.True(t, s.Records[2].TimedOut)
	assert.Nil(t, s.Records[2].Answer)
}

func TestTierFor(t *testing.T) {
	cases := []struct {
		percent float64
		want    model.Tier
	}{
		{100, model.TierFullMark},
		{99.99, model.TierExcellent},
		{90, model.TierExcellent},
		{89.9, model.TierVeryGood},
		{75, model.TierVeryGood},
		{60, model.TierGood},
		{40, model.TierFair},
		{39.9, model.TierPoor},
		{0, model.TierPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TierFor(tc.percent, 100, DefaultBands), "percent %v", tc.percent)
	}
	assert.Equal(t, model.TierPending, TierFor(0, 0, DefaultBands))
}

func TestTierForNeedsEveryPointForFullMark(t *testing.T) {
	assert.Equal(t, model.TierExcellent, TierFor(29999, 30000, DefaultBands))
	assert.Equal(t, model.TierFullMark, TierFor(30000, 30000, DefaultBands))
}

func TestTierForCustomBands(t *testing.T) {
	bands := model.FeedbackBands{Excellent: 80, VeryGood: 70, Good: 50, Fair: 20}
	assert.Equal(t, model.TierExcellent, TierFor(85, 100, bands))
	assert.Equal(t, model.TierFair, TierFor(25, 100, bands))

	noPoor := model.FeedbackBands{Excellent: 80, VeryGood: 60, Good: 30, Fair: 0}
	assert.True(t, ValidBands(noPoor))
	assert.Equal(t, model.TierFair, TierFor(0, 10, noPoor))
}

func TestValidBands(t *testing.T) {
	assert.True(t, ValidBands(DefaultBands))
	assert.False(t, ValidBands(model.FeedbackBands{Excellent: 100, VeryGood: 75, Good: 60, Fair: 40}))
	assert.False(t, ValidBands(model.FeedbackBands{Excellent: 90, VeryGood: 95, Good: 60, Fair: 40}))
	assert.False(t, ValidBands(model.FeedbackBands{Excellent: 90, VeryGood: 75, Good: 60, Fair: -1}))
}

func TestMessage(t *testing.T) {
	m := model.FeedbackMessages{FullMark: "Perfect", Poor: "Keep trying"}
	assert.Equal(t, "Perfect", Message(model.TierFullMark, m))
	assert.Equal(t, "Keep trying", Message(model.TierPoor, m))
	assert.Empty(t, Message(model.TierPending, m))
}
