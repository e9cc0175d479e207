package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tuplan/server/internal/storage/postgres"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the embedded schema migrations against DATABASE_URL.

Examples:
  server migrate up
  server migrate down --steps 1
  server migrate version`,
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
				return err
			}
			return printMigrationVersion(cmd.OutOrStdout(), cfg.Database.URL)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive, got %d", steps)
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if err := postgres.MigrateDown(cfg.Database.URL, steps); err != nil {
				return err
			}
			return printMigrationVersion(cmd.OutOrStdout(), cfg.Database.URL)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return printMigrationVersion(cmd.OutOrStdout(), cfg.Database.URL)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func printMigrationVersion(out io.Writer, databaseURL string) error {
	version, dirty, err := postgres.MigrationVersion(databaseURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version: %d", version)
	if dirty {
		fmt.Fprint(out, " (dirty)")
	}
	fmt.Fprintln(out)
	return nil
}
