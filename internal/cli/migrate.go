package cli

import (
	"fmt"

	"github.com/Skotchmaster/todo_backend/internal/config"
	"github.com/Skotchmaster/todo_backend/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := migrationDSN()
			if err != nil {
				return err
			}
			if db.IsSQLite(dsn) {
				gdb, err := db.Open(cmd.Context(), dsn)
				if err != nil {
					return err
				}
				defer db.Close(gdb)
				if err := db.AutoMigrate(gdb); err != nil {
					return err
				}
			} else if err := db.MigrateUp(dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := migrationDSN()
			if err != nil {
				return err
			}
			if db.IsSQLite(dsn) {
				return fmt.Errorf("migrate down needs a postgres DATABASE_URL")
			}
			if err := db.MigrateDown(dsn, steps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List embedded migration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := db.MigrationFiles()
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, listCmd)
	return migrateCmd
}

func migrationDSN() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if err := config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL"); err != nil {
		return "", err
	}
	return cfg.DatabaseURL, nil
}
