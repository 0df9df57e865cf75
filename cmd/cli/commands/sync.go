package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/fleetsync"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/core/trigger"
)

// SyncCmd creates the sync command
func SyncCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <license_expiry|leave_mirror|bus_documents|all>",
		Short: "Run fleet status sync jobs once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := []string{args[0]}
			if args[0] == "all" {
				jobs = fleetsync.Jobs
			}

			today := app.Today()
			if date, _ := cmd.Flags().GetString("date"); date != "" {
				parsed, err := model.ParseDate(date)
				if err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
				}
				today = parsed
			}

			runner := trigger.NewRunner(app.Database, app.Logger, nil, trigger.OptionsFromConfig(app.Cfg.Sync))

			var failed int
			summaries := []*fleetsync.Summary{}
			for _, job := range jobs {
				summary, err := runner.Run(app.Ctx, job, today)
				if errors.Is(err, trigger.ErrJobRunning) {
					fmt.Printf("\n⚠️  %s is already running elsewhere, skipped\n", job)
					continue
				}
				if err != nil {
					app.Logger.Error("Sync job failed", zap.String("job", job), zap.Error(err))
					fmt.Printf("\n✗ %s failed: %v\n", job, err)
					failed++
					continue
				}
				summaries = append(summaries, summary)
				printSummary(summary)
			}
			fmt.Println()

			if notify, _ := cmd.Flags().GetBool("notify"); notify && app.Cfg.Sync.NotifyEmail != "" {
				mailer, err := app.GmailClient()
				if err != nil {
					return err
				}
				if err := trigger.NotifyWarnings(app.Ctx, mailer, app.Cfg.Sync.NotifyEmail, summaries, app.Logger); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d sync job(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().String("date", "", "Evaluate as of this day instead of today (YYYY-MM-DD)")
	cmd.Flags().Bool("notify", false, "Email the warning digest to sync.notifyEmail")
	return cmd
}
