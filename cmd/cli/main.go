package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/cmd/cli/commands"
	"github.com/jakechorley/fleet-ops/internal/config"
	"github.com/jakechorley/fleet-ops/pkg/memdb"
	"github.com/jakechorley/fleet-ops/pkg/postgres"
	"github.com/jakechorley/fleet-ops/pkg/utils/clock"
	"github.com/jakechorley/fleet-ops/pkg/utils/logging"
)

var (
	env        string
	fixture    string
	verbose    bool
	app        *commands.AppContext
	closeStore func()
)

func main() {
	app = &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Fleet Ops CLI - Schedule bus shifts and keep fleet status in sync",
		Long: `A CLI tool for booking buses and crews into shifts without double-booking,
and for deriving driver, employee and bus states from licenses, leave, documents and maintenance orders.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeStore != nil {
				closeStore()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required unless --memory is set: test, prod, etc.)")
	rootCmd.PersistentFlags().StringVar(&fixture, "memory", "", "Run against an in-memory store loaded from this YAML fixture")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs on the console")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.CreateShiftCmd(app))
	rootCmd.AddCommand(commands.UpdateShiftCmd(app))
	rootCmd.AddCommand(commands.CancelShiftCmd(app))
	rootCmd.AddCommand(commands.AddCrewCmd(app))
	rootCmd.AddCommand(commands.ListShiftsCmd(app))
	rootCmd.AddCommand(commands.CalendarCmd(app))
	rootCmd.AddCommand(commands.ShiftStatusCmd(app))
	rootCmd.AddCommand(commands.PublishCalendarCmd(app))
	rootCmd.AddCommand(commands.SaveMaintenanceOrderCmd(app))
	rootCmd.AddCommand(commands.DeleteMaintenanceOrderCmd(app))
	rootCmd.AddCommand(commands.RequestLeaveCmd(app))
	rootCmd.AddCommand(commands.SyncCmd(app))
	rootCmd.AddCommand(commands.SyncDaemonCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config and the store
func initApp() error {
	var err error

	if env == "" && fixture == "" {
		return fmt.Errorf("--env is required unless --memory is set")
	}

	app.Ctx = context.Background()
	app.Env = env
	app.Clock = clock.Real()

	app.Logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Info("Starting application", zap.String("environment", env))

	if fixture != "" {
		app.Logger.Info("Loading in-memory store", zap.String("fixture", fixture))
		store, err := memdb.LoadFixture(fixture)
		if err != nil {
			return fmt.Errorf("failed to load fixture: %w", err)
		}
		app.Database = store

		// Config is optional in memory mode
		app.Cfg, err = config.LoadWithEnv(env)
		if err != nil {
			app.Logger.Debug("No config file, using defaults", zap.Error(err))
			app.Cfg = &config.Config{Sync: config.SyncConfig{Schedule: config.DefaultSchedule}}
		}
		return nil
	}

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Database = database
	closeStore = database.Close
	app.Logger.Info("Database initialized successfully")

	return nil
}
