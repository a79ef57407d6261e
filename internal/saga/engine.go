// Package saga drives each record through the ordered external stages,
// consulting the audit ledger to skip stages that already succeeded.
//
// The engine is re-entrant: the same Run entry point serves the post-commit
// trigger from the intake and the reconciler's retry sweep. Every ledger
// append and status update commits independently, so a pass interrupted by a
// crash resumes correctly on the next trigger by re-reading the ledger.
package saga

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dcamarena/ingest-sagas/internal/auditlog"
	"github.com/dcamarena/ingest-sagas/internal/pkg/clock"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

var tracer = otel.Tracer("github.com/dcamarena/ingest-sagas/internal/saga")

// Executor runs one stage's external side effect for a single record.
// Implementations are swappable collaborators; any returned error is treated
// as a stage failure and its text is recorded verbatim in the ledger.
type Executor interface {
	// Stage names the ledger stage this executor implements.
	Stage() auditlog.Stage
	// Execute performs the side effect.
	Execute(ctx context.Context, rec record.Record) error
}

// defaultAbortThreshold: a pass tolerates one FAILED record before it
// signals a batch-level abort.
const defaultAbortThreshold = 1

// Engine executes saga passes over batches of records.
type Engine struct {
	records   record.Store
	audit     auditlog.Repository
	guard     *Guard
	executors []Executor
	threshold int
	clock     clock.Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithAbortThreshold sets how many FAILED records a single pass tolerates
// before Run returns an AbortError.
func WithAbortThreshold(n int) Option {
	return func(e *Engine) {
		e.threshold = n
	}
}

// WithClock overrides the engine clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// NewEngine builds an Engine. Executors run in the given order for every
// record; the order must match auditlog.Stages().
func NewEngine(records record.Store, audit auditlog.Repository, guard *Guard, executors []Executor, opts ...Option) *Engine {
	e := &Engine{
		records:   records,
		audit:     audit,
		guard:     guard,
		executors: executors,
		threshold: defaultAbortThreshold,
		clock:     clock.System{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one saga pass over the batch.
//
// Per record: acquire the dedup guard (or skip the record entirely), attempt
// each stage in order unless the ledger already holds a SUCCESS entry for
// it, then resolve the record to SUCCESS or FAILED. Stage failures are
// expected and recorded; persistence failures abort the pass and propagate.
//
// When more records end FAILED than the abort threshold allows, Run returns
// an AbortError after all per-record writes have committed.
func (e *Engine) Run(ctx context.Context, batch []record.Record) error {
	if len(batch) == 0 {
		return nil
	}

	passID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "saga.pass", trace.WithAttributes(
		attribute.String("saga.pass_id", passID),
		attribute.Int("saga.batch_size", len(batch)),
	))
	defer span.End()

	log := slog.With("pass_id", passID)
	log.InfoContext(ctx, "saga pass started", "batch_size", len(batch))

	failedCount := 0
	for _, rec := range batch {
		failed, err := e.processRecord(ctx, log, rec)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if failed {
			failedCount++
		}
	}

	if failedCount > e.threshold {
		err := &AbortError{FailedCount: failedCount, Threshold: e.threshold}
		span.RecordError(err)
		return err
	}

	log.InfoContext(ctx, "saga pass completed", "failed", failedCount)
	return nil
}

// processRecord runs both stages for one record and resolves its status.
// The returned bool reports whether any stage failed; the returned error is
// reserved for persistence failures, which are fatal to the pass.
func (e *Engine) processRecord(ctx context.Context, log *slog.Logger, rec record.Record) (bool, error) {
	if rec.Status.Terminal() {
		log.DebugContext(ctx, "skipping resolved record", "unique_id", rec.UniqueID, "status", string(rec.Status))
		return false, nil
	}
	if !e.guard.TryAcquire(rec.UniqueID) {
		// Another pass is already handling this record: no ledger entry,
		// no status change.
		log.InfoContext(ctx, "skipping record already in flight", "unique_id", rec.UniqueID)
		return false, nil
	}
	defer e.guard.Release(rec.UniqueID)

	failed := false
	for _, ex := range e.executors {
		stageFailed, err := e.runStage(ctx, log, ex, rec)
		if err != nil {
			return false, err
		}
		// A stage failure does not short-circuit the remaining stages; each
		// stage's outcome is tracked independently in the ledger.
		if stageFailed {
			failed = true
		}
	}

	status := record.StatusSuccess
	if failed {
		status = record.StatusFailed
	}
	if err := e.records.UpdateStatus(ctx, rec.UniqueID, status, e.clock.Now()); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			// The row vanished between the pass trigger and now. The ledger
			// entries stand; nothing further to resolve.
			log.WarnContext(ctx, "record missing on status update", "unique_id", rec.UniqueID)
			return failed, nil
		}
		return false, err
	}
	log.InfoContext(ctx, "record resolved", "unique_id", rec.UniqueID, "status", string(status))

	return failed, nil
}

// runStage attempts a single stage for a record, honouring the ledger
// idempotency check. The returned bool reports a stage failure; the returned
// error is a ledger persistence failure.
func (e *Engine) runStage(ctx context.Context, log *slog.Logger, ex Executor, rec record.Record) (bool, error) {
	stage := ex.Stage()

	done, err := e.audit.StageSucceeded(ctx, rec.UniqueID, stage)
	if err != nil {
		return false, err
	}
	if done {
		log.DebugContext(ctx, "stage already completed, skipping", "unique_id", rec.UniqueID, "stage", string(stage))
		return false, nil
	}

	if err := e.audit.Save(ctx, auditlog.NewEntry(rec.UniqueID, stage, auditlog.StatusStarted, "", e.clock.Now())); err != nil {
		return false, err
	}

	if execErr := ex.Execute(ctx, rec); execErr != nil {
		log.ErrorContext(ctx, "stage failed", "unique_id", rec.UniqueID, "stage", string(stage), "error", execErr)
		if err := e.audit.Save(ctx, auditlog.NewEntry(rec.UniqueID, stage, auditlog.StatusFailed, execErr.Error(), e.clock.Now())); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := e.audit.Save(ctx, auditlog.NewEntry(rec.UniqueID, stage, auditlog.StatusSuccess, "", e.clock.Now())); err != nil {
		return false, err
	}
	return false, nil
}
