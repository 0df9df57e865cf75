package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/pkg/core/trigger"
)

// SyncDaemonCmd creates the syncDaemon command
func SyncDaemonCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "syncDaemon",
		Short: "Run every sync job on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := trigger.NewMetrics(reg)
			if err != nil {
				return err
			}

			cfg := app.Cfg.Sync
			if cfg.MetricsAddr != "" {
				go func() {
					if err := trigger.StartPromServer(ctx, cfg.MetricsAddr, reg, app.Logger); err != nil {
						app.Logger.Error("Metrics server failed", zap.Error(err))
					}
				}()
			}

			var mailer trigger.Mailer
			if cfg.NotifyEmail != "" {
				client, err := app.GmailClient()
				if err != nil {
					return err
				}
				mailer = client
			}

			runner := trigger.NewRunner(app.Database, app.Logger, metrics, trigger.OptionsFromConfig(cfg))
			daemon, err := trigger.NewDaemon(runner, app.Clock, cfg.Schedule, mailer, cfg.NotifyEmail, app.Logger)
			if err != nil {
				return err
			}

			app.Logger.Info("Starting sync daemon", zap.String("schedule", cfg.Schedule))
			return daemon.Run(ctx)
		},
	}
}
