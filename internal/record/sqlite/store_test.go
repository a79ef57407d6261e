package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcamarena/ingest-sagas/internal/pkg/sqlitedb"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedb.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(db)
	require.NoError(t, err)
	return store
}

func seedRecord(t *testing.T, store *Store, uniqueID string, status record.Status, createdAt time.Time) *record.Record {
	t.Helper()
	rec := &record.Record{
		UniqueID:  uniqueID,
		Payload:   `{"id":"` + uniqueID + `"}`,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, store.SaveBatch(context.Background(), []*record.Record{rec}))
	return rec
}

func TestSaveBatchAndFindAll(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	batch := []*record.Record{
		{UniqueID: "c-1", Payload: "p1", Status: record.StatusPending, CreatedAt: now, UpdatedAt: now},
		{UniqueID: "c-2", Payload: "p2", Status: record.StatusPending, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, store.SaveBatch(context.Background(), batch))
	assert.Positive(t, batch[0].ID)
	assert.Positive(t, batch[1].ID)

	all, err := store.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c-1", all[0].UniqueID)
	assert.Equal(t, "p1", all[0].Payload)
	assert.Equal(t, record.StatusPending, all[0].Status)
	assert.Equal(t, now, all[0].CreatedAt)
}

func TestFindByUniqueID(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, store, "c-1", record.StatusPending, now)

	rec, err := store.FindByUniqueID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", rec.UniqueID)

	_, err = store.FindByUniqueID(context.Background(), "missing")
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	store := newTestStore(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, store, "c-1", record.StatusPending, created)

	updated := created.Add(5 * time.Minute)
	require.NoError(t, store.UpdateStatus(context.Background(), "c-1", record.StatusFailed, updated))

	rec, err := store.FindByUniqueID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, record.StatusFailed, rec.Status)
	assert.Equal(t, updated, rec.UpdatedAt)
	assert.Equal(t, created, rec.CreatedAt, "created_at must not change")

	err = store.UpdateStatus(context.Background(), "missing", record.StatusFailed, updated)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestFindByStatus(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRecord(t, store, "c-ok", record.StatusSuccess, now)
	seedRecord(t, store, "c-f1", record.StatusFailed, now)
	seedRecord(t, store, "c-f2", record.StatusFailed, now)

	failed, err := store.FindByStatus(context.Background(), record.StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "c-f1", failed[0].UniqueID)
	assert.Equal(t, "c-f2", failed[1].UniqueID)

	invalid, err := store.FindByStatus(context.Background(), record.StatusInvalid)
	require.NoError(t, err)
	assert.Empty(t, invalid)
}

func TestFindByStatusCreatedBefore(t *testing.T) {
	store := newTestStore(t)
	cutoff := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	seedRecord(t, store, "c-old", record.StatusFailed, cutoff.Add(-time.Second))
	seedRecord(t, store, "c-exact", record.StatusFailed, cutoff)
	seedRecord(t, store, "c-new", record.StatusFailed, cutoff.Add(time.Second))
	seedRecord(t, store, "c-old-success", record.StatusSuccess, cutoff.Add(-time.Hour))

	got, err := store.FindByStatusCreatedBefore(context.Background(), record.StatusFailed, cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1, "only strictly-older FAILED records match")
	assert.Equal(t, "c-old", got[0].UniqueID)
}
