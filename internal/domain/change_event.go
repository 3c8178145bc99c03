package domain

import "time"

// ChangeOperation describes a recorded activity operation for a project.
type ChangeOperation string

// ChangeOperation values used by the activity ledger.
const (
	ChangeOperationCreate ChangeOperation = "create"
	ChangeOperationMove   ChangeOperation = "move"
)

// ChangeEvent represents a single activity-log entry for a project.
type ChangeEvent struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"session_id"`
	ProjectID  int64           `json:"project_id"`
	Title      string          `json:"title"`
	Operation  ChangeOperation `json:"operation"`
	Actor      string          `json:"actor"`
	FromStatus ProjectStatus   `json:"from_status,omitempty"`
	ToStatus   ProjectStatus   `json:"to_status"`
	OccurredAt time.Time       `json:"occurred_at"`
}
