// Package auditlog defines the append-only ledger of stage attempts.
//
// The ledger is the durable idempotency source of truth: a stage is
// considered completed for a record iff at least one SUCCESS entry exists
// for that (unique_id, stage) pair. Entries are never updated or deleted,
// so the saga engine can resume safely after a process restart simply by
// re-reading the ledger.
package auditlog

import "time"

// Stage identifies one discrete external side-effecting operation.
type Stage string

const (
	// StageWriteFile is the local spool-file write, executed first.
	StageWriteFile Stage = "WRITE_FILE"
	// StagePublishQueue is the queue publish, executed second.
	StagePublishQueue Stage = "PUBLISH_QUEUE"
)

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{StageWriteFile, StagePublishQueue}
}

// Status is the outcome recorded for one stage attempt.
type Status string

const (
	// StatusStarted is appended immediately before the side effect runs.
	StatusStarted Status = "STARTED"
	// StatusSuccess marks the stage completed; its presence makes every
	// later attempt of the same stage a no-op.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed carries the error text of a failed attempt.
	StatusFailed Status = "FAILED"
)

// Entry is a single row in the audit ledger.
type Entry struct {
	// ID is the surrogate primary key, assigned by the store.
	ID int64

	// UniqueID is the business key of the record the attempt belongs to.
	UniqueID string

	// Stage is the operation attempted.
	Stage Stage

	// Status is the attempt outcome.
	Status Status

	// ErrorMessage holds the failure text verbatim. Empty unless Status is
	// FAILED.
	ErrorMessage string

	// Timestamp is the wall-clock time of the attempt.
	Timestamp time.Time
}

// NewEntry builds a ledger entry stamped at the given time.
func NewEntry(uniqueID string, stage Stage, status Status, errMsg string, at time.Time) *Entry {
	return &Entry{
		UniqueID:     uniqueID,
		Stage:        stage,
		Status:       status,
		ErrorMessage: errMsg,
		Timestamp:    at,
	}
}
