// Package sqlitedb opens the process-wide SQLite database shared by the
// record store and the audit ledger.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa. That matters because the saga engine writes while the HTTP handlers
// may be reading the same tables for the query surface.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver.
	// We use modernc.org/sqlite instead of mattn/go-sqlite3 to avoid CGO
	// requirements, making it easier to build and run in Docker (Alpine).
	_ "modernc.org/sqlite"
)

// TimeLayout is the fixed-width RFC3339 format used for every timestamp
// column. SQLite has no native datetime type; fixed-width TEXT means
// lexicographic comparison in SQL matches chronological order, which the
// quarantine sweep's created_at range query relies on.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Open opens (or creates) the SQLite database at the given path.
//
// The pure-Go driver uses _pragma query parameters to configure connection
// state. WAL enables concurrent readers. busy_timeout waits for locks
// instead of failing immediately.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3" for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	return db, nil
}

// FormatTime renders t for storage in a timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp column value written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlitedb: parse time %q: %w", s, err)
	}
	return t, nil
}
