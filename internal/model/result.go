package model

import (
	"time"
)

// ResultRecord is the flattened row persisted for a reported session.
// Answers and strikes are stored as JSON documents.
type ResultRecord struct {
	ID           int64         `json:"id"`
	Folder       string        `json:"folder"`
	ArtifactID   string        `json:"artifact_id"`
	SessionID    string        `json:"session_id"`
	DeviceID     string        `json:"device_id"`
	Title        string        `json:"title"`
	ClassName    string        `json:"class_name"`
	Subject      string        `json:"subject"`
	TakerName    string        `json:"taker_name"`
	Score        float64       `json:"score"`
	MaxScore     float64       `json:"max_score"`
	Percent      float64       `json:"percent"`
	Tier         Tier          `json:"tier"`
	Status       SessionStatus `json:"status"`
	AttemptIndex int           `json:"attempt_index"`
	StrikeCount  int           `json:"strike_count"`
	ManualReview []string      `json:"manual_review"`
	AnswersJSON  []byte        `json:"-"`
	StrikesJSON  []byte        `json:"-"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	ReceivedAt   time.Time     `json:"received_at"`
}

// ResultEnvelope is the queue payload carrying a pushed result to the
// persistence worker.
type ResultEnvelope struct {
	Folder     string        `json:"folder"`
	Result     SessionResult `json:"result"`
	ReceivedAt time.Time     `json:"received_at"`
}
