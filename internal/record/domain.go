// Package record defines the customer record entity and its lifecycle.
//
// A record is created PENDING by the intake, resolved to SUCCESS or FAILED by
// the saga engine after each pass, and may eventually be quarantined to
// INVALID by the reconciler. SUCCESS and INVALID are terminal. Records are
// never deleted.
package record

import "time"

// Status is the current lifecycle state of a record.
type Status string

const (
	// StatusPending means the record was accepted but no saga pass has
	// resolved it yet.
	StatusPending Status = "PENDING"
	// StatusSuccess means every stage completed. Terminal.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed means at least one stage failed in the last pass; the
	// record is a retry candidate.
	StatusFailed Status = "FAILED"
	// StatusInvalid means the record stayed FAILED past the quarantine age
	// and was removed from retry permanently. Terminal.
	StatusInvalid Status = "INVALID"
)

// Terminal reports whether no further transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusInvalid
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
//
//	PENDING -> SUCCESS | FAILED
//	FAILED  -> SUCCESS | FAILED | INVALID
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusSuccess || next == StatusFailed
	case StatusFailed:
		return next == StatusSuccess || next == StatusFailed || next == StatusInvalid
	default:
		return false
	}
}

// Record is one row in the records table.
type Record struct {
	// ID is the surrogate primary key, assigned by the store.
	ID int64

	// UniqueID is the business key. The store does not enforce uniqueness;
	// callers treat it as unique by convention.
	UniqueID string

	// Payload is the opaque customer data as submitted.
	Payload string

	// Status is the current lifecycle state.
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}
