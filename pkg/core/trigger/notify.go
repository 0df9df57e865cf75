package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
)

// Mailer sends a plain-text email
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// NotifyWarnings emails the warnings and transitions of a batch of job runs.
// Nothing is sent when no job reported a warning.
func NotifyWarnings(ctx context.Context, mailer Mailer, to string, summaries []*fleetsync.Summary, logger *zap.Logger) error {
	warnings := 0
	for _, s := range summaries {
		warnings += len(s.Warnings)
	}
	if warnings == 0 {
		logger.Debug("No sync warnings to send")
		return nil
	}

	subject, body := BuildDigest(summaries)
	if err := mailer.SendEmail(ctx, to, subject, body); err != nil {
		return fmt.Errorf("failed to send sync digest: %w", err)
	}

	logger.Info("Sync digest sent", zap.String("to", to), zap.Int("warnings", warnings))
	return nil
}

// BuildDigest renders the email subject and body for a batch of job runs
func BuildDigest(summaries []*fleetsync.Summary) (string, string) {
	var date time.Time
	warnings := 0
	for _, s := range summaries {
		warnings += len(s.Warnings)
		date = s.Date
	}

	subject := fmt.Sprintf("Fleet sync %s: %d warning(s)", model.FormatDate(date), warnings)

	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "%s: %d updated, %d skipped\n", s.Job, s.Updated, s.Skipped)
		for _, t := range s.Transitions {
			fmt.Fprintf(&b, "  %s %s: %s -> %s (%s)\n", t.EntityKind, t.EntityID, t.From, t.To, t.Reason)
		}
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", w)
		}
		b.WriteString("\n")
	}

	return subject, strings.TrimRight(b.String(), "\n") + "\n"
}
