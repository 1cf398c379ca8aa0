package model

import (
	"time"
)

// BankQuestion is a question stored in a folder's shared bank. The
// classification fields are always filled when exported from the editor.
type BankQuestion struct {
	Folder    string    `json:"folder"`
	Question  Question  `json:"question"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PushBankRequest is the payload for syncing questions into a folder bank.
type PushBankRequest struct {
	Questions []Question `json:"questions" binding:"required,min=1,max=1000,dive"`
}

// SavedQuiz is one library entry: a full quiz saved under a folder.
type SavedQuiz struct {
	ID      string    `json:"id"`
	Folder  string    `json:"folder,omitempty"`
	Title   string    `json:"title,omitempty"`
	Data    QuizData  `json:"data"`
	SavedAt time.Time `json:"savedAt"`
}

// PushTestRequest is the payload for syncing a quiz into a folder library.
type PushTestRequest struct {
	ID   string   `json:"id" binding:"omitempty,uuid"`
	Data QuizData `json:"data" binding:"required"`
}
