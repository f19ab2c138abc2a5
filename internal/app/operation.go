package app

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Operation tracks one CLI invocation. Its ID tags every log line written
// during the invocation; ULIDs sort by start time, so grepping the log for a
// session yields its lines in order.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	StartedAt  time.Time
	Status     string // "success" or "error"
}

// NewOperation starts an operation at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Name:       name,
		Parameters: parameters,
		StartedAt:  now,
		Status:     "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Elapsed returns the time since the operation started.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}
