package auditlog

import "context"

// Repository is the port for persisting ledger entries. The saga engine
// depends on this abstraction, not on SQLite directly, so the implementation
// can be swapped for Postgres, in-memory (tests), etc.
type Repository interface {
	// Save appends a new entry. Each call appends a row; the ledger is
	// append-only, never an upsert.
	Save(ctx context.Context, entry *Entry) error

	// StageSucceeded reports whether at least one SUCCESS entry exists for
	// the given record and stage.
	StageSucceeded(ctx context.Context, uniqueID string, stage Stage) (bool, error)

	// FindByUniqueID returns every entry for a record in append order.
	FindByUniqueID(ctx context.Context, uniqueID string) ([]*Entry, error)
}
