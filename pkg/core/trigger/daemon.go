package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
	"github.com/jakechorley/fleet-ops/pkg/utils/clock"
)

// Daemon runs every sync job at each occurrence of a recurrence rule
type Daemon struct {
	runner   *Runner
	clock    clock.Clock
	rule     *rrule.RRule
	mailer   Mailer
	notifyTo string
	logger   *zap.Logger
}

// NewDaemon parses schedule as an RFC 5545 RRULE evaluated in UTC.
// mailer may be nil, in which case no digest is sent.
func NewDaemon(runner *Runner, clk clock.Clock, schedule string, mailer Mailer, notifyTo string, logger *zap.Logger) (*Daemon, error) {
	rule, err := rrule.StrToRRule(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sync schedule: %w", err)
	}
	rule.DTStart(clk.Now().UTC())

	return &Daemon{
		runner:   runner,
		clock:    clk,
		rule:     rule,
		mailer:   mailer,
		notifyTo: notifyTo,
		logger:   logger,
	}, nil
}

// Next returns the first scheduled run strictly after t, or the zero time if the rule is exhausted
func (d *Daemon) Next(t time.Time) time.Time {
	return d.rule.After(t.UTC(), false)
}

// Run blocks until ctx is cancelled, running all jobs at every scheduled time
func (d *Daemon) Run(ctx context.Context) error {
	for {
		now := d.clock.Now()
		next := d.Next(now)
		if next.IsZero() {
			return errors.New("sync schedule has no further occurrences")
		}

		d.logger.Info("Next sync run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			d.logger.Info("Sync daemon stopping")
			return nil
		case <-d.clock.After(next.Sub(now)):
		}

		d.RunOnce(ctx, next)
	}
}

// RunOnce runs every job for the day of at and sends the warning digest.
// A failed job is logged and does not stop the others.
func (d *Daemon) RunOnce(ctx context.Context, at time.Time) []*fleetsync.Summary {
	summaries := []*fleetsync.Summary{}
	for _, job := range fleetsync.Jobs {
		summary, err := d.runner.Run(ctx, job, at)
		if err != nil {
			if errors.Is(err, ErrJobRunning) {
				continue
			}
			d.logger.Error("Sync job failed", zap.String("job", job), zap.Error(err))
			continue
		}
		summaries = append(summaries, summary)
	}

	if d.mailer != nil && d.notifyTo != "" {
		if err := NotifyWarnings(ctx, d.mailer, d.notifyTo, summaries, d.logger); err != nil {
			d.logger.Error("Failed to send sync digest", zap.Error(err))
		}
	}

	return summaries
}
