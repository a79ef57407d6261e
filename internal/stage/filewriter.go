// Package stage provides the concrete stage executors the saga engine
// drives: a local spool-file write and a Redis stream publish.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

// FileWriter writes each record's payload to a spool directory. Stage 1.
type FileWriter struct {
	dir string
}

// NewFileWriter returns a FileWriter targeting dir. The directory is created
// on first use.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir}
}

// Stage implements saga.Executor.
func (w *FileWriter) Stage() auditlog.Stage {
	return auditlog.StageWriteFile
}

// Execute writes the payload to <dir>/<unique_id>.json. Writing the same
// record twice overwrites the same file, so a replayed attempt is harmless.
func (w *FileWriter) Execute(ctx context.Context, rec record.Record) error {
	// The business key becomes a file name; path separators would escape
	// the spool directory.
	if strings.ContainsAny(rec.UniqueID, `/\`) {
		return fmt.Errorf("stage: unique id %q is not a valid file name", rec.UniqueID)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("stage: create spool dir %q: %w", w.dir, err)
	}

	path := filepath.Join(w.dir, rec.UniqueID+".json")
	if err := os.WriteFile(path, []byte(rec.Payload), 0o644); err != nil {
		return fmt.Errorf("stage: write %q: %w", path, err)
	}

	slog.DebugContext(ctx, "spool file written", "unique_id", rec.UniqueID, "path", path)
	return nil
}
