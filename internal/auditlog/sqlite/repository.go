// Package sqlite provides the SQLite-backed implementation of
// auditlog.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/pkg/sqlitedb"
)

// schema is the DDL executed once on startup. The table is append-only:
// each row is an immutable stage attempt; rows are never updated or deleted.
const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    -- Surrogate primary key, auto-incremented by SQLite.
    id             INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Business identifier of the record the attempt belongs to.
    -- Not UNIQUE because many attempts exist per record.
    unique_id      TEXT NOT NULL,

    -- Stage attempted: WRITE_FILE or PUBLISH_QUEUE.
    stage          TEXT NOT NULL,

    -- Attempt outcome: STARTED, SUCCESS or FAILED.
    status         TEXT NOT NULL,

    -- Failure text, verbatim from the stage executor. NULL otherwise.
    error_message  TEXT,

    -- Fixed-width RFC3339 TEXT (SQLite idiom, see sqlitedb).
    timestamp      TEXT NOT NULL
);

-- Serves the idempotency check: "does a SUCCESS row exist for (id, stage)?".
CREATE INDEX IF NOT EXISTS idx_audit_log_unique_id_stage ON audit_log(unique_id, stage, status);
`

// Repository is the SQLite implementation of auditlog.Repository.
type Repository struct {
	db *sql.DB
}

// New wraps an open database handle (see sqlitedb.Open) and applies the
// ledger schema.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply audit_log schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Save inserts a new ledger entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *auditlog.Entry) error {
	const q = `
		INSERT INTO audit_log (unique_id, stage, status, error_message, timestamp)
		VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, q,
		entry.UniqueID,
		string(entry.Stage),
		string(entry.Status),
		nullableString(entry.ErrorMessage),
		sqlitedb.FormatTime(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save audit entry for %q: %w", entry.UniqueID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// StageSucceeded reports whether a SUCCESS entry exists for (uniqueID, stage).
func (r *Repository) StageSucceeded(ctx context.Context, uniqueID string, stage auditlog.Stage) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM audit_log
			WHERE unique_id = ? AND stage = ? AND status = ?
		)`

	var exists bool
	err := r.db.QueryRowContext(ctx, q, uniqueID, string(stage), string(auditlog.StatusSuccess)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: check stage %s for %q: %w", stage, uniqueID, err)
	}
	return exists, nil
}

// FindByUniqueID returns every ledger entry for a record in append order.
func (r *Repository) FindByUniqueID(ctx context.Context, uniqueID string) ([]*auditlog.Entry, error) {
	const q = `
		SELECT id, unique_id, stage, status, COALESCE(error_message, ''), timestamp
		FROM   audit_log
		WHERE  unique_id = ?
		ORDER  BY id`

	rows, err := r.db.QueryContext(ctx, q, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query audit entries for %q: %w", uniqueID, err)
	}
	defer rows.Close()

	var out []*auditlog.Entry
	for rows.Next() {
		var (
			entry         auditlog.Entry
			stage, status string
			ts            string
		)
		if err := rows.Scan(&entry.ID, &entry.UniqueID, &stage, &status, &entry.ErrorMessage, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit entry: %w", err)
		}
		entry.Stage = auditlog.Stage(stage)
		entry.Status = auditlog.Status(status)
		if entry.Timestamp, err = sqlitedb.ParseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate audit entries: %w", err)
	}
	return out, nil
}

// nullableString returns nil for empty strings so SQLite stores NULL instead
// of an empty TEXT, keeping the error column clean on non-FAILED rows.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
