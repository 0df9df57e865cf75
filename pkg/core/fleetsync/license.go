package fleetsync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
)

// DefaultLicenseWarningDays is how far ahead expiring licenses are reported
const DefaultLicenseWarningDays = 30

// LicenseOptions configures the license expiry sync
type LicenseOptions struct {
	// WarningDays reports licenses expiring within this many days. Zero uses the default.
	WarningDays int
}

// SyncLicenseExpiry moves drivers whose license lapsed before today to inactive.
// Drivers already inactive are untouched, so a second run is a no-op.
// Licenses expiring within the warning window are reported without any write.
func SyncLicenseExpiry(ctx context.Context, store db.LicenseStore, logger *zap.Logger, today time.Time, opts LicenseOptions) (*Summary, error) {
	today = model.Day(today)
	summary := newSummary(JobLicenseExpiry, today)

	warningDays := opts.WarningDays
	if warningDays <= 0 {
		warningDays = DefaultLicenseWarningDays
	}
	horizon := today.AddDate(0, 0, warningDays)

	drivers, err := store.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}

	logger.Debug("Checking driver licenses",
		zap.Int("drivers", len(drivers)),
		zap.String("today", model.FormatDate(today)),
		zap.Int("warning_days", warningDays))

	for _, driver := range drivers {
		if driver.LicenseExpiry == nil {
			continue
		}
		expiry := model.Day(*driver.LicenseExpiry)

		if driver.LicenseExpired(today) {
			if !licenseBlockable(driver.State) {
				continue
			}
			ok, err := store.UpdateDriverState(ctx, driver.ID, driver.State, model.CrewInactive)
			if err != nil {
				summary.skip(logger, "driver", driver.ID, err)
				continue
			}
			if !ok {
				summary.skip(logger, "driver", driver.ID, errChanged)
				continue
			}
			summary.record(Transition{
				EntityKind: "driver",
				EntityID:   driver.ID,
				From:       string(driver.State),
				To:         string(model.CrewInactive),
				Reason:     "license expired on " + model.FormatDate(expiry),
			})
			continue
		}

		if !expiry.After(horizon) {
			days := int(expiry.Sub(today).Hours() / 24)
			summary.warn("driver", driver.ID, fmt.Sprintf("license expires on %s (in %d days)", model.FormatDate(expiry), days))
		}
	}

	logger.Info("License expiry sync finished",
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("warnings", len(summary.Warnings)))

	return summary, nil
}

// licenseBlockable reports whether an expired license moves a driver in this state to inactive
func licenseBlockable(state model.CrewState) bool {
	return state == model.CrewActive || state == model.CrewMedicalLeave || state == model.CrewSuspended
}
