package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus represents the lifecycle of a render workflow.
type WorkflowStatus string

const (
	StatusQueued     WorkflowStatus = "queued"
	StatusInProgress WorkflowStatus = "in_progress"
	StatusCompleted  WorkflowStatus = "completed"
	StatusFailed     WorkflowStatus = "failed"
)

// Terminal reports whether the status is absorbing: a workflow never
// transitions out of completed or failed.
func (s WorkflowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RenderWorkflow tracks one asynchronous rendering request submitted to
// the external job system. Rows are append-only; only the status tracker
// mutates them.
type RenderWorkflow struct {
	ID           uuid.UUID      `json:"id"`
	UserID       string         `json:"user_id"`
	WorkflowID   int64          `json:"workflow_id"` // run id in the external job system
	SegmentIndex int            `json:"segment_index"`
	Status       WorkflowStatus `json:"status"`
	OutputFile   string         `json:"output_file"`
	VideoURL     *string        `json:"video_url,omitempty"`
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Duration     *float64       `json:"duration,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// UserVideo is a rendered video owned by the user, created only when a
// workflow completes with a successfully retrieved artifact. It is
// deletable independently of the workflow record.
type UserVideo struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	VideoURL  string    `json:"video_url"`
	Name      string    `json:"name"`
	Duration  *float64  `json:"duration,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
