// Package trigger runs the fleet synchronizer jobs on demand or on a daily schedule.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/internal/config"
	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

var (
	// ErrJobRunning is returned when another run of the same job holds its lock
	ErrJobRunning = errors.New("job is already running")
	// ErrUnknownJob is returned for a job name outside fleetsync.Jobs
	ErrUnknownJob = errors.New("unknown job")
)

// Store is everything the three jobs and the run-lock need
type Store interface {
	db.LeaveStore
	db.BusStatusStore
	db.JobLocker
}

// Options tune the individual jobs
type Options struct {
	LicenseWarningDays int
	SkipOrderSweep     bool
}

// OptionsFromConfig maps the sync section of the config file onto job options
func OptionsFromConfig(cfg config.SyncConfig) Options {
	return Options{
		LicenseWarningDays: cfg.LicenseWarningDays,
		SkipOrderSweep:     cfg.SkipOrderSweep,
	}
}

// Runner executes one job at a time per job name
type Runner struct {
	store   Store
	logger  *zap.Logger
	metrics *Metrics
	opts    Options
}

// NewRunner returns a Runner. metrics may be nil.
func NewRunner(store Store, logger *zap.Logger, metrics *Metrics, opts Options) *Runner {
	return &Runner{store: store, logger: logger, metrics: metrics, opts: opts}
}

// Run executes the named job for today. It is safe to call repeatedly for the same day.
func (r *Runner) Run(ctx context.Context, job string, today time.Time) (*fleetsync.Summary, error) {
	if !slices.Contains(fleetsync.Jobs, job) {
		return nil, fmt.Errorf("%w %q, expected one of %v", ErrUnknownJob, job, fleetsync.Jobs)
	}
	today = model.Day(today)
	logger := r.logger.With(zap.String("job", job), zap.String("date", model.FormatDate(today)))

	release, ok, err := r.store.TryLockJob(ctx, job)
	if err != nil {
		r.metrics.observeRun(job, resultError, 0)
		return nil, fmt.Errorf("failed to acquire run lock for %s: %w", job, err)
	}
	if !ok {
		r.metrics.observeRun(job, resultLocked, 0)
		logger.Warn("Job already running, skipping")
		return nil, ErrJobRunning
	}
	defer release()

	logger.Debug("Running sync job")
	start := time.Now()

	summary, err := r.runJob(ctx, job, logger, today)
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.observeRun(job, resultError, elapsed)
		return nil, fmt.Errorf("sync job %s failed: %w", job, err)
	}

	r.metrics.observeRun(job, resultSuccess, elapsed)
	r.metrics.observeSummary(summary)

	logger.Info("Sync job finished",
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("warnings", len(summary.Warnings)),
		zap.Duration("elapsed", elapsed))

	return summary, nil
}

func (r *Runner) runJob(ctx context.Context, job string, logger *zap.Logger, today time.Time) (*fleetsync.Summary, error) {
	switch job {
	case fleetsync.JobLicenseExpiry:
		return fleetsync.SyncLicenseExpiry(ctx, r.store, logger, today, fleetsync.LicenseOptions{WarningDays: r.opts.LicenseWarningDays})
	case fleetsync.JobLeaveMirror:
		return fleetsync.MirrorLeaveState(ctx, r.store, logger, today)
	case fleetsync.JobBusDocuments:
		return fleetsync.SyncBusDocuments(ctx, r.store, logger, today, fleetsync.BusOptions{SkipOrderSweep: r.opts.SkipOrderSweep})
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownJob, job)
}
