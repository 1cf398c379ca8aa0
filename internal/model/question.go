package model

// QuestionType enumerates the supported question kinds. Values match the
// strings the authoring editor writes.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "Multiple Choice"
	QuestionTypeTrueFalse      QuestionType = "True/False"
	QuestionTypeFillBlank      QuestionType = "Fill in the blank"
	QuestionTypeEssay          QuestionType = "Essay"
	QuestionTypeMatching       QuestionType = "Matching"
	QuestionTypeOther          QuestionType = "Other"
)

// QuestionTypes lists every valid QuestionType.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeTrueFalse,
	QuestionTypeFillBlank,
	QuestionTypeEssay,
	QuestionTypeMatching,
	QuestionTypeOther,
}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	for _, v := range QuestionTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyHigh   Difficulty = "High"
	DifficultyMedium Difficulty = "Medium"
	DifficultyEasy   Difficulty = "Easy"
)

type EducationStage string

const (
	StagePrimary     EducationStage = "Primary"
	StagePreparatory EducationStage = "Preparatory"
	StageSecondary   EducationStage = "Secondary"
)

type Semester string

const (
	SemesterFirst  Semester = "First"
	SemesterSecond Semester = "Second"
)

// Choice is one selectable option of a question. For matching questions
// MatchText is the right-hand side the choice must be paired with.
type Choice struct {
	ID        string `json:"id" yaml:"id" binding:"required"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
	MatchText string `json:"matchText,omitempty" yaml:"matchText,omitempty"`
}

// Question is a single authored question.
type Question struct {
	ID            string         `json:"id" yaml:"id" binding:"required"`
	Type          QuestionType   `json:"type" yaml:"type" binding:"required,questiontype"`
	Difficulty    Difficulty     `json:"difficulty,omitempty" yaml:"difficulty,omitempty" binding:"omitempty,oneof=High Medium Easy"`
	Category      string         `json:"category,omitempty" yaml:"category,omitempty"`
	Text          string         `json:"text" yaml:"text"`
	Image         string         `json:"image,omitempty" yaml:"image,omitempty"`
	Choices       []Choice       `json:"choices" yaml:"choices" binding:"dive"`
	CorrectAnswer string         `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
	Points        float64        `json:"points" yaml:"points" binding:"min=0"`
	BgColor       string         `json:"bgColor,omitempty" yaml:"bgColor,omitempty"`
	Stage         EducationStage `json:"stage,omitempty" yaml:"stage,omitempty" binding:"omitempty,oneof=Primary Preparatory Secondary"`
	Grade         string         `json:"grade,omitempty" yaml:"grade,omitempty"`
	Subject       string         `json:"subject,omitempty" yaml:"subject,omitempty"`
	Semester      Semester       `json:"semester,omitempty" yaml:"semester,omitempty" binding:"omitempty,oneof=First Second"`
	Branch        string         `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// Choice returns the choice with the given id.
func (q *Question) Choice(id string) (*Choice, bool) {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return &q.Choices[i], true
		}
	}
	return nil, false
}

// CorrectChoiceIDs returns the ids of all choices flagged correct, in authored order.
func (q *Question) CorrectChoiceIDs() []string {
	ids := make([]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		if c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// QuizData is the compiler's sole input: questions plus settings.
type QuizData struct {
	Questions []Question   `json:"questions" yaml:"questions" binding:"dive"`
	Settings  QuizSettings `json:"settings" yaml:"settings"`
}

// Question returns the question with the given id.
func (d *QuizData) Question(id string) (*Question, bool) {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i], true
		}
	}
	return nil, false
}
