// Package intake implements the front-door service: durable batch intake
// and the read-only query surface.
//
// Submit acknowledges durable persistence only; stage outcomes are never
// reflected synchronously. They are observable afterwards through the
// record status and the audit ledger.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/pkg/clock"
	"github.com/dcamarena/ingest-sagas/internal/record"
	"github.com/dcamarena/ingest-sagas/internal/saga"
)

// Submission is one item of an incoming batch.
type Submission struct {
	UniqueID string
	Payload  string
}

// Customer is the query-surface view of a record: business key and payload,
// no status.
type Customer struct {
	UniqueID string
	Payload  string
}

// Runner is the saga entry point committed batches are handed to.
type Runner interface {
	Run(ctx context.Context, batch []record.Record) error
}

// Service persists incoming batches and triggers the saga engine after
// commit.
type Service struct {
	records record.Store
	audit   auditlog.Repository
	saga    Runner
	clock   clock.Clock
}

// NewService builds the intake service.
func NewService(records record.Store, audit auditlog.Repository, runner Runner, clk clock.Clock) *Service {
	return &Service{
		records: records,
		audit:   audit,
		saga:    runner,
		clock:   clk,
	}
}

// Submit inserts every item as a PENDING record in one transaction and, once
// that transaction has committed, hands the batch to the saga engine
// asynchronously. On any persistence failure the whole batch is rejected and
// no saga pass runs.
func (s *Service) Submit(ctx context.Context, batch []Submission) error {
	now := s.clock.Now()
	recs := make([]*record.Record, 0, len(batch))
	for _, sub := range batch {
		recs = append(recs, &record.Record{
			UniqueID:  sub.UniqueID,
			Payload:   sub.Payload,
			Status:    record.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.records.SaveBatch(ctx, recs); err != nil {
		return fmt.Errorf("intake: persist batch: %w", err)
	}
	slog.InfoContext(ctx, "batch persisted", "count", len(recs))

	if len(recs) == 0 {
		return nil
	}

	// SaveBatch returns only after its transaction commits, so the engine
	// can never observe a record whose PENDING insert is not durable.
	// Detach from the request context so the pass is not cancelled when the
	// HTTP response is written, while keeping tracing metadata.
	passBatch := make([]record.Record, len(recs))
	for i, rec := range recs {
		passBatch[i] = *rec
	}
	go s.runSaga(context.WithoutCancel(ctx), passBatch)

	return nil
}

// runSaga runs one engine pass and reports its outcome through the logs.
// The submit caller has already been acknowledged; an AbortError here is the
// operational alert the batch policy calls for, not something to undo.
func (s *Service) runSaga(ctx context.Context, batch []record.Record) {
	err := s.saga.Run(ctx, batch)
	var abort *saga.AbortError
	switch {
	case errors.As(err, &abort):
		slog.ErrorContext(ctx, "saga pass aborted on failure threshold",
			"failed", abort.FailedCount, "threshold", abort.Threshold)
	case err != nil:
		slog.ErrorContext(ctx, "saga pass failed", "error", err)
	}
}

// List returns the current snapshot of all records.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	recs, err := s.records.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("intake: list records: %w", err)
	}
	out := make([]Customer, len(recs))
	for i, rec := range recs {
		out[i] = Customer{UniqueID: rec.UniqueID, Payload: rec.Payload}
	}
	return out, nil
}

// GetByUniqueID returns a single record by business key. The wrapped error
// matches record.ErrNotFound when no record exists.
func (s *Service) GetByUniqueID(ctx context.Context, uniqueID string) (Customer, error) {
	rec, err := s.records.FindByUniqueID(ctx, uniqueID)
	if err != nil {
		return Customer{}, fmt.Errorf("intake: get record %q: %w", uniqueID, err)
	}
	return Customer{UniqueID: rec.UniqueID, Payload: rec.Payload}, nil
}

// AuditTrail returns the ledger entries for a record in append order.
func (s *Service) AuditTrail(ctx context.Context, uniqueID string) ([]*auditlog.Entry, error) {
	entries, err := s.audit.FindByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("intake: audit trail for %q: %w", uniqueID, err)
	}
	return entries, nil
}
