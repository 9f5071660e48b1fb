// Package domain holds the durable entities shared across the store,
// dispatch, and HTTP layers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is one of the five legal task states. Submitted is initial,
// {Done, Failed, Deleted} are terminal, StartedExecuting is reachable only
// via the claim protocol.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusStartedExecuting Status = "started_executing"
	StatusDone             Status = "done"
	StatusFailed           Status = "failed"
	StatusDeleted          Status = "deleted"
)

// TaskType selects which handler runs when a task is claimed.
type TaskType string

const (
	TypeFoo TaskType = "foo"
	TypeBar TaskType = "bar"
	TypeBaz TaskType = "baz"
)

func ValidType(t TaskType) bool {
	switch t {
	case TypeFoo, TypeBar, TypeBaz:
		return true
	default:
		return false
	}
}

// Task is the sole durable entity. Timestamps are UTC; exactly one terminal
// timestamp is set once Status is terminal, none while Submitted.
type Task struct {
	ID                 uuid.UUID  `json:"id"`
	CreatedAt          time.Time  `json:"created_at"`
	Status             Status     `json:"status"`
	ExecutionTime      time.Time  `json:"execution_time"`
	TaskType           TaskType   `json:"task_type"`
	StartedExecutingAt *time.Time `json:"started_executing_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	FailedAt           *time.Time `json:"failed_at,omitempty"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	// ClaimedBy is diagnostic only: it is returned with the task record, but
	// no component reads it and the claim protocol never consults it for
	// correctness.
	ClaimedBy *string `json:"claimed_by,omitempty"`
}
