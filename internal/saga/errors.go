package saga

import "fmt"

// AbortError signals that more records failed in one pass than the
// configured threshold allows.
//
// It is returned after every per-record ledger and status write of the pass
// has already committed: nothing is retracted. Callers surface it as an
// operational alert, not a data rollback.
type AbortError struct {
	// FailedCount is the number of records that ended the pass FAILED.
	FailedCount int
	// Threshold is the configured maximum before a pass aborts.
	Threshold int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("saga: %d records failed in one pass, exceeding abort threshold %d", e.FailedCount, e.Threshold)
}
