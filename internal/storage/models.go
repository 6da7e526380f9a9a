package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Draft is one recorded generation attempt.
type Draft struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	ParentType       string    `json:"parent_type"`
	EmailContext     string    `json:"email_context"`
	SituationContext string    `json:"situation_context"`
	Model            string    `json:"model"`
	Email            string    `json:"email,omitempty"`
	Status           string    `json:"status"`
	StatusCode       int       `json:"status_code,omitempty"`
	Error            string    `json:"error,omitempty"`
	InputTokens      int       `json:"input_tokens"`
	OutputTokens     int       `json:"output_tokens"`
	DurationMs       int64     `json:"duration_ms"`
}
