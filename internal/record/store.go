package record

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Store is the port for the mutable records table. The saga engine and the
// reconciler depend on this abstraction, not on SQLite directly, so the
// implementation can be swapped for Postgres, in-memory (tests), etc.
type Store interface {
	// SaveBatch inserts every record in one transaction. Either all inserts
	// commit or none do; SaveBatch returning nil means the batch is durable.
	SaveBatch(ctx context.Context, records []*Record) error

	// UpdateStatus sets the status and updated_at of the record with the
	// given business key. Returns ErrNotFound when no row matches.
	UpdateStatus(ctx context.Context, uniqueID string, status Status, at time.Time) error

	// FindByUniqueID returns the record with the given business key, or
	// ErrNotFound.
	FindByUniqueID(ctx context.Context, uniqueID string) (*Record, error)

	// FindAll returns every record.
	FindAll(ctx context.Context) ([]*Record, error)

	// FindByStatus returns every record currently in the given status.
	FindByStatus(ctx context.Context, status Status) ([]*Record, error)

	// FindByStatusCreatedBefore returns every record in the given status
	// whose created_at is strictly before cutoff.
	FindByStatusCreatedBefore(ctx context.Context, status Status, cutoff time.Time) ([]*Record, error)
}
