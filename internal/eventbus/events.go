package eventbus

import (
	"context"
	"time"
)

// Generation lifecycle subjects
const (
	SubjectGenerationStarted   = "recipes.generation.started"
	SubjectGenerationCompleted = "recipes.generation.completed"
	SubjectGenerationFailed    = "recipes.generation.failed"
)

// GenerationEvent describes a step in the life of one recipe generation
type GenerationEvent struct {
	GenerationID   string    `json:"generation_id"`
	PrepTime       string    `json:"prep_time,omitempty"`
	CandidateCount int       `json:"candidate_count,omitempty"`
	Selected       string    `json:"selected,omitempty"`
	DurationMs     int64     `json:"duration_ms,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher sends events to subscribers
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

// Noop discards every event
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
