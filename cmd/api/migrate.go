// AngelaMos | 2026
// migrate.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/migrations"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}

	var steps int

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, *configPath, func(_ *config.Config, db *core.Database) error {
				if err := migrations.Up(db.DB.DB); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, *configPath, func(_ *config.Config, db *core.Database) error {
				if err := migrations.Down(db.DB.DB, steps); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	cmd.AddCommand(up, down)
	return cmd
}

// withDatabase opens the database for a one-shot command and closes it
// when fn returns.
func withDatabase(
	cmd *cobra.Command,
	configPath string,
	fn func(cfg *config.Config, db *core.Database) error,
) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	db, err := core.NewDatabase(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	return fn(cfg, db)
}

func printVersion(cmd *cobra.Command, db *core.Database) error {
	version, dirty, err := migrations.Version(db.DB.DB)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
	return err
}
