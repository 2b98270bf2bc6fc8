package model

import "time"

// SyncStatus is the state of the reindex job record.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "running"
)

// SyncJob is the single row that serializes full reindex runs.
type SyncJob struct {
	Status       SyncStatus `json:"status"`
	RunID        string     `json:"run_id,omitempty"`
	Cursor       string     `json:"cursor,omitempty"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	LastError    *string    `json:"last_error,omitempty"`
}
