// Package reconciler schedules the two periodic sweeps that keep FAILED
// records moving: a retry sweep that re-submits them to the saga engine and
// a quarantine sweep that moves records FAILED for longer than the age
// threshold to INVALID.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dcamarena/ingest-sagas/internal/pkg/clock"
	"github.com/dcamarena/ingest-sagas/internal/record"
)

// DefaultAgeThreshold is how long a record may stay FAILED before the
// quarantine sweep moves it to INVALID.
const DefaultAgeThreshold = 24 * time.Hour

// Runner is the saga entry point retry batches are re-submitted to. It is
// the same entry point the intake uses; the engine's dedup guard and ledger
// checks make the re-entry safe.
type Runner interface {
	Run(ctx context.Context, batch []record.Record) error
}

// Reconciler owns the retry and quarantine sweeps.
type Reconciler struct {
	records record.Store
	saga    Runner
	age     time.Duration
	clock   clock.Clock
	cron    *cron.Cron
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithAgeThreshold sets the quarantine age threshold.
func WithAgeThreshold(d time.Duration) Option {
	return func(r *Reconciler) {
		r.age = d
	}
}

// WithClock overrides the reconciler clock.
func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) {
		r.clock = c
	}
}

// New builds a Reconciler. Call Start to schedule the sweeps, or invoke
// RetrySweep/QuarantineSweep directly.
func New(records record.Store, runner Runner, opts ...Option) *Reconciler {
	r := &Reconciler{
		records: records,
		saga:    runner,
		age:     DefaultAgeThreshold,
		clock:   clock.System{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrySweep loads every FAILED record and re-submits the set to the saga
// engine. An empty candidate set is a no-op.
func (r *Reconciler) RetrySweep(ctx context.Context) error {
	recs, err := r.records.FindByStatus(ctx, record.StatusFailed)
	if err != nil {
		return fmt.Errorf("reconciler: load failed records: %w", err)
	}
	if len(recs) == 0 {
		slog.DebugContext(ctx, "no failed records to retry")
		return nil
	}

	batch := make([]record.Record, len(recs))
	for i, rec := range recs {
		batch[i] = *rec
	}

	slog.InfoContext(ctx, "retrying failed records", "count", len(batch))
	if err := r.saga.Run(ctx, batch); err != nil {
		return fmt.Errorf("reconciler: retry pass: %w", err)
	}
	return nil
}

// QuarantineSweep moves every record FAILED since before now-age to INVALID.
// It touches neither SUCCESS/PENDING records nor the audit ledger; the
// ledger keeps the full attempt history of quarantined records.
func (r *Reconciler) QuarantineSweep(ctx context.Context) error {
	now := r.clock.Now()
	cutoff := now.Add(-r.age)

	recs, err := r.records.FindByStatusCreatedBefore(ctx, record.StatusFailed, cutoff)
	if err != nil {
		return fmt.Errorf("reconciler: load stale failed records: %w", err)
	}
	if len(recs) == 0 {
		slog.DebugContext(ctx, "no stale failed records to quarantine")
		return nil
	}

	quarantined := 0
	for _, rec := range recs {
		// A retry pass may resolve the record between the load above and this
		// update; re-read and verify the transition is still legal.
		current, err := r.records.FindByUniqueID(ctx, rec.UniqueID)
		if err != nil {
			return fmt.Errorf("reconciler: re-read %q: %w", rec.UniqueID, err)
		}
		if !current.Status.CanTransitionTo(record.StatusInvalid) {
			slog.InfoContext(ctx, "record resolved before quarantine, skipping",
				"unique_id", rec.UniqueID, "status", string(current.Status))
			continue
		}
		if err := r.records.UpdateStatus(ctx, rec.UniqueID, record.StatusInvalid, now); err != nil {
			return fmt.Errorf("reconciler: quarantine %q: %w", rec.UniqueID, err)
		}
		quarantined++
	}

	slog.InfoContext(ctx, "quarantined stale failed records", "count", quarantined)
	return nil
}

// Start schedules both sweeps: the retry sweep every retryEvery, the
// quarantine sweep on quarantineSpec (a standard five-field cron
// expression). Overlapping runs of the same sweep are skipped, not queued.
func (r *Reconciler) Start(retryEvery time.Duration, quarantineSpec string) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	if _, err := c.AddFunc("@every "+retryEvery.String(), func() {
		r.runSweep("retry", r.RetrySweep)
	}); err != nil {
		return fmt.Errorf("reconciler: schedule retry sweep: %w", err)
	}

	if _, err := c.AddFunc(quarantineSpec, func() {
		r.runSweep("quarantine", r.QuarantineSweep)
	}); err != nil {
		return fmt.Errorf("reconciler: schedule quarantine sweep %q: %w", quarantineSpec, err)
	}

	c.Start()
	r.cron = c
	slog.Info("reconciler started", "retry_every", retryEvery.String(), "quarantine_cron", quarantineSpec)
	return nil
}

// Stop halts the scheduler and waits for any running sweep to finish.
func (r *Reconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *Reconciler) runSweep(name string, sweep func(context.Context) error) {
	ctx := context.Background()
	if err := sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "sweep failed", "sweep", name, "error", err)
	}
}
