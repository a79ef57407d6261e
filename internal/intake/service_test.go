package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/pkg/clock"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   []*record.Record
	saveErr error
	records []*record.Record
}

func (s *fakeStore) SaveBatch(_ context.Context, recs []*record.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, recs...)
	return nil
}

func (s *fakeStore) UpdateStatus(context.Context, string, record.Status, time.Time) error {
	return nil
}

func (s *fakeStore) FindByUniqueID(_ context.Context, uniqueID string) (*record.Record, error) {
	for _, rec := range s.records {
		if rec.UniqueID == uniqueID {
			return rec, nil
		}
	}
	return nil, record.ErrNotFound
}

func (s *fakeStore) FindAll(context.Context) ([]*record.Record, error) {
	return s.records, nil
}

func (s *fakeStore) FindByStatus(context.Context, record.Status) ([]*record.Record, error) {
	return nil, nil
}

func (s *fakeStore) FindByStatusCreatedBefore(context.Context, record.Status, time.Time) ([]*record.Record, error) {
	return nil, nil
}

type fakeLedger struct {
	entries []*auditlog.Entry
}

func (l *fakeLedger) Save(context.Context, *auditlog.Entry) error { return nil }
func (l *fakeLedger) StageSucceeded(context.Context, string, auditlog.Stage) (bool, error) {
	return false, nil
}
func (l *fakeLedger) FindByUniqueID(context.Context, string) ([]*auditlog.Entry, error) {
	return l.entries, nil
}

type fakeRunner struct {
	batches chan []record.Record
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{batches: make(chan []record.Record, 1)}
}

func (r *fakeRunner) Run(_ context.Context, batch []record.Record) error {
	r.batches <- batch
	return nil
}

func (r *fakeRunner) wait(t *testing.T) []record.Record {
	t.Helper()
	select {
	case batch := <-r.batches:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("saga engine was never triggered")
		return nil
	}
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, runner Runner) *Service {
	return NewService(store, &fakeLedger{}, runner, clock.Fixed{T: testNow})
}

func TestSubmitPersistsThenTriggersSaga(t *testing.T) {
	store := &fakeStore{}
	runner := newFakeRunner()
	svc := newTestService(store, runner)

	err := svc.Submit(context.Background(), []Submission{
		{UniqueID: "c-1", Payload: "p1"},
		{UniqueID: "c-2", Payload: "p2"},
	})
	require.NoError(t, err)

	require.Len(t, store.saved, 2)
	assert.Equal(t, record.StatusPending, store.saved[0].Status)
	assert.Equal(t, testNow, store.saved[0].CreatedAt)
	assert.Equal(t, testNow, store.saved[0].UpdatedAt)

	batch := runner.wait(t)
	require.Len(t, batch, 2)
	assert.Equal(t, "c-1", batch[0].UniqueID)
	assert.Equal(t, "p1", batch[0].Payload)
	assert.Equal(t, record.StatusPending, batch[0].Status)
}

func TestSubmitRejectsBatchOnPersistenceFailure(t *testing.T) {
	sentinel := errors.New("db down")
	store := &fakeStore{saveErr: sentinel}
	runner := newFakeRunner()
	svc := newTestService(store, runner)

	err := svc.Submit(context.Background(), []Submission{{UniqueID: "c-1"}})
	require.ErrorIs(t, err, sentinel)

	// No commit, no saga: the engine must never see the batch.
	assert.Empty(t, runner.batches)
}

func TestSubmitEmptyBatchDoesNotTriggerSaga(t *testing.T) {
	store := &fakeStore{}
	runner := newFakeRunner()
	svc := newTestService(store, runner)

	require.NoError(t, svc.Submit(context.Background(), nil))
	assert.Empty(t, runner.batches)
}

func TestList(t *testing.T) {
	store := &fakeStore{records: []*record.Record{
		{UniqueID: "c-1", Payload: "p1", Status: record.StatusSuccess},
		{UniqueID: "c-2", Payload: "p2", Status: record.StatusFailed},
	}}
	svc := newTestService(store, newFakeRunner())

	customers, err := svc.List(context.Background())
	require.NoError(t, err)
	// The query surface exposes business key and payload only.
	assert.Equal(t, []Customer{
		{UniqueID: "c-1", Payload: "p1"},
		{UniqueID: "c-2", Payload: "p2"},
	}, customers)
}

func TestGetByUniqueID(t *testing.T) {
	store := &fakeStore{records: []*record.Record{
		{UniqueID: "c-1", Payload: "p1", Status: record.StatusPending},
	}}
	svc := newTestService(store, newFakeRunner())

	customer, err := svc.GetByUniqueID(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, Customer{UniqueID: "c-1", Payload: "p1"}, customer)

	_, err = svc.GetByUniqueID(context.Background(), "missing")
	assert.ErrorIs(t, err, record.ErrNotFound)
}
