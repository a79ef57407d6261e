package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

func TestFileWriterExecute(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)

	assert.Equal(t, auditlog.StageWriteFile, w.Stage())

	rec := record.Record{UniqueID: "c-1", Payload: `{"name":"alice"}`}
	require.NoError(t, w.Execute(context.Background(), rec))

	data, err := os.ReadFile(filepath.Join(dir, "c-1.json"))
	require.NoError(t, err)
	assert.Equal(t, rec.Payload, string(data))
}

func TestFileWriterExecuteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)

	rec := record.Record{UniqueID: "c-1", Payload: "v1"}
	require.NoError(t, w.Execute(context.Background(), rec))

	rec.Payload = "v2"
	require.NoError(t, w.Execute(context.Background(), rec), "replaying a write must not fail")

	data, err := os.ReadFile(filepath.Join(dir, "c-1.json"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestFileWriterRejectsPathSeparators(t *testing.T) {
	w := NewFileWriter(t.TempDir())

	err := w.Execute(context.Background(), record.Record{UniqueID: "../escape", Payload: "x"})
	assert.Error(t, err)
}

func TestFileWriterCreatesSpoolDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "spool")
	w := NewFileWriter(dir)

	require.NoError(t, w.Execute(context.Background(), record.Record{UniqueID: "c-1", Payload: "x"}))
	assert.FileExists(t, filepath.Join(dir, "c-1.json"))
}
