package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, ok := app.Database.(Migrator)
			if !ok {
				return fmt.Errorf("the selected store has no schema to migrate")
			}

			applied, err := migrator.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Println("Database is up to date.")
				return nil
			}
			fmt.Printf("\n✓ Applied %d migration(s):\n", len(applied))
			for _, f := range applied {
				fmt.Printf("  %s\n", f)
			}
			fmt.Println()
			return nil
		},
	}
}
