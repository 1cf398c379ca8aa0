package cloud

import (
	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// ExportToBank prepares questions for the folder bank. Classification the
// author left blank is filled from the quiz defaults.
func ExportToBank(questions []model.Question, settings *model.QuizSettings) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		if q.Stage == "" {
			q.Stage = settings.DefaultStage
		}
		if q.Grade == "" {
			q.Grade = settings.DefaultGrade
		}
		if q.Subject == "" {
			q.Subject = settings.Subject
		}
		if q.Semester == "" {
			q.Semester = settings.DefaultSemester
		}
		out[i] = q
	}
	return out
}

// LibraryEntry wraps a quiz for the folder library. An empty id gets a new one.
func LibraryEntry(id string, data *model.QuizData) *model.PushTestRequest {
	if id == "" {
		id = uuid.New().String()
	}
	return &model.PushTestRequest{ID: id, Data: *data}
}
