// Package sqlite provides the SQLite-backed implementation of record.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dcamarena/ingest-sagas/internal/pkg/sqlitedb"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

// schema is the DDL executed once on startup. Idempotent due to IF NOT EXISTS.
const schema = `
CREATE TABLE IF NOT EXISTS records (
    -- Surrogate primary key, auto-incremented by SQLite.
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Business identifier. Not UNIQUE at the schema level; treated as
    -- unique by convention upstream.
    unique_id   TEXT NOT NULL,

    -- Opaque customer payload as submitted.
    payload     TEXT NOT NULL DEFAULT '',

    -- Lifecycle state: PENDING, SUCCESS, FAILED or INVALID.
    status      TEXT NOT NULL,

    -- Fixed-width RFC3339 TEXT so range queries compare correctly.
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_unique_id ON records(unique_id);

-- Serves both reconciler queries: "all FAILED" and "FAILED created before T".
CREATE INDEX IF NOT EXISTS idx_records_status_created_at ON records(status, created_at);
`

// Store is the SQLite implementation of record.Store.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle (see sqlitedb.Open) and applies the
// records schema.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply records schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveBatch inserts every record in a single transaction. On success the
// store-assigned IDs are written back into the given records.
func (s *Store) SaveBatch(ctx context.Context, records []*record.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
		INSERT INTO records (unique_id, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	for _, rec := range records {
		res, err := tx.ExecContext(ctx, q,
			rec.UniqueID,
			rec.Payload,
			string(rec.Status),
			sqlitedb.FormatTime(rec.CreatedAt),
			sqlitedb.FormatTime(rec.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert record %q: %w", rec.UniqueID, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			rec.ID = id
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit batch insert: %w", err)
	}
	return nil
}

// UpdateStatus sets status and updated_at for the record with the given
// business key.
func (s *Store) UpdateStatus(ctx context.Context, uniqueID string, status record.Status, at time.Time) error {
	const q = `UPDATE records SET status = ?, updated_at = ? WHERE unique_id = ?`

	res, err := s.db.ExecContext(ctx, q, string(status), sqlitedb.FormatTime(at), uniqueID)
	if err != nil {
		return fmt.Errorf("sqlite: update status for %q: %w", uniqueID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update status for %q: %w", uniqueID, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: update status for %q: %w", uniqueID, record.ErrNotFound)
	}
	return nil
}

const selectColumns = `id, unique_id, payload, status, created_at, updated_at`

// FindByUniqueID returns the record with the given business key. If the
// unique-by-convention invariant was ever violated upstream, the oldest row
// wins.
func (s *Store) FindByUniqueID(ctx context.Context, uniqueID string) (*record.Record, error) {
	q := `SELECT ` + selectColumns + ` FROM records WHERE unique_id = ? ORDER BY id LIMIT 1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, uniqueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: record %q: %w", uniqueID, record.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find record %q: %w", uniqueID, err)
	}
	return rec, nil
}

// FindAll returns every record in insertion order.
func (s *Store) FindAll(ctx context.Context) ([]*record.Record, error) {
	q := `SELECT ` + selectColumns + ` FROM records ORDER BY id`
	return s.queryRecords(ctx, q)
}

// FindByStatus returns every record currently in the given status.
func (s *Store) FindByStatus(ctx context.Context, status record.Status) ([]*record.Record, error) {
	q := `SELECT ` + selectColumns + ` FROM records WHERE status = ? ORDER BY id`
	return s.queryRecords(ctx, q, string(status))
}

// FindByStatusCreatedBefore returns every record in the given status created
// strictly before cutoff.
func (s *Store) FindByStatusCreatedBefore(ctx context.Context, status record.Status, cutoff time.Time) ([]*record.Record, error) {
	q := `SELECT ` + selectColumns + ` FROM records WHERE status = ? AND created_at < ? ORDER BY id`
	return s.queryRecords(ctx, q, string(status), sqlitedb.FormatTime(cutoff))
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query records: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate records: %w", err)
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*record.Record, error) {
	var (
		rec                  record.Record
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.UniqueID, &rec.Payload, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Status = record.Status(status)

	var err error
	if rec.CreatedAt, err = sqlitedb.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = sqlitedb.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
