package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
)

func sampleSummaries() []*fleetsync.Summary {
	return []*fleetsync.Summary{
		{
			Job:     fleetsync.JobLicenseExpiry,
			Date:    today,
			Updated: 1,
			Transitions: []fleetsync.Transition{
				{EntityKind: "driver", EntityID: "d1", From: "active", To: "inactive", Reason: "license expired on 2025-03-01"},
			},
			Warnings: []fleetsync.Warning{
				{EntityKind: "driver", EntityID: "d2", Message: "license expires on 2025-03-20 (in 10 days)"},
			},
		},
		{
			Job:      fleetsync.JobBusDocuments,
			Date:     today,
			Skipped:  1,
			Warnings: []fleetsync.Warning{{EntityKind: "bus", EntityID: "B9", Message: "skipped: boom"}},
		},
	}
}

func TestBuildDigest(t *testing.T) {
	subject, body := BuildDigest(sampleSummaries())

	assert.Equal(t, "Fleet sync 2025-03-10: 2 warning(s)", subject)
	assert.Equal(t, `license_expiry: 1 updated, 0 skipped
  driver d1: active -> inactive (license expired on 2025-03-01)
  ! driver d2: license expires on 2025-03-20 (in 10 days)

bus_documents: 0 updated, 1 skipped
  ! bus B9: skipped: boom
`, body)
}

func TestNotifyWarnings(t *testing.T) {
	ctx := context.Background()
	mailer := &mockMailer{}

	require.NoError(t, NotifyWarnings(ctx, mailer, "ops@example.com", sampleSummaries(), zap.NewNop()))
	require.Equal(t, 1, mailer.count())
	assert.Equal(t, "ops@example.com", mailer.sent[0].to)
}

func TestNotifyWarnings_NothingToSend(t *testing.T) {
	mailer := &mockMailer{}
	quiet := []*fleetsync.Summary{{Job: fleetsync.JobLeaveMirror, Date: today}}

	require.NoError(t, NotifyWarnings(context.Background(), mailer, "ops@example.com", quiet, zap.NewNop()))
	assert.Zero(t, mailer.count())
}

func TestNotifyWarnings_SendError(t *testing.T) {
	boom := errors.New("quota")
	mailer := &mockMailer{sendErr: boom}

	err := NotifyWarnings(context.Background(), mailer, "ops@example.com", sampleSummaries(), zap.NewNop())
	assert.ErrorIs(t, err, boom)
}
