package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation records one CLI command. Its ID tags every log line the command
// writes; Mutating commands also push a snapshot when configured to.
type Operation struct {
	ID        string
	Command   string
	Arguments string
	Mutating  bool
	Status    string // "success" or "error"
	StartedAt time.Time
}

// NewOperation creates a successful operation record started at now.
func NewOperation(command, arguments string, now time.Time) *Operation {
	return &Operation{
		ID:        uuid.New().String(),
		Command:   command,
		Arguments: arguments,
		Status:    "success",
		StartedAt: now,
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Elapsed returns the time since the operation started, truncated to
// milliseconds.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt).Truncate(time.Millisecond)
}
