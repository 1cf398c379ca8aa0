package model

import (
	"time"
)

// Artifact is a compiled, self-contained quiz document.
type Artifact struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	FileName      string    `json:"file_name"`
	QuestionCount int       `json:"question_count"`
	SizeBytes     int       `json:"size_bytes"`
	HTML          []byte    `json:"-"`
	Quiz          *QuizData `json:"quiz,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ArtifactSummary is the cached, HTML-less view of an artifact.
type ArtifactSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	FileName      string   `json:"file_name"`
	QuestionCount int      `json:"question_count"`
	TimerEnabled  bool     `json:"timer_enabled"`
	TimerMode     string   `json:"timer_mode,omitempty"`
	TimerSeconds  int      `json:"timer_seconds,omitempty"`
	MaxAttempts   int      `json:"max_attempts"`
	Language      Language `json:"language"`
	Offline       bool     `json:"offline"`
}

// CompileArtifactRequest is the payload for compiling a quiz on the server.
type CompileArtifactRequest struct {
	Quiz QuizData `json:"quiz" binding:"required"`
}
