package admin

import (
	"fmt"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/config"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/database"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|version]",
		Short: "Manage database migrations",
		Long:  "Apply, roll back (one step) or inspect the schema version of the primary database",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMigrate,
	}

	cmd.Flags().String("dir", defaultMigrationsDir, "Directory containing migration files")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	action := "up"
	if len(args) == 1 {
		action = args[0]
	}
	switch action {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown migrate action %q (expected up, down or version)", action)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.MustNew(cfg.Debug)
	defer logger.Sync() //nolint:errcheck

	dir, _ := cmd.Flags().GetString("dir")

	if action == "up" {
		return runMigrations(cfg.DatabaseURL, dir, logger)
	}

	m, err := database.NewMigrator(cfg.DatabaseURL, dir)
	if err != nil {
		return err
	}
	defer m.Close()

	if action == "down" {
		if err := m.StepDown(); err != nil {
			return err
		}
	}

	version, dirty, applied, err := m.Version()
	if err != nil {
		return err
	}
	if !applied {
		fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
	return nil
}

func runMigrations(databaseURL, dir string, logger *zap.Logger) error {
	m, err := database.NewMigrator(databaseURL, dir)
	if err != nil {
		return err
	}
	defer m.Close()

	version, err := m.Up()
	if err != nil {
		return err
	}
	if version == 0 {
		logger.Info("migrations: no migrations applied")
		return nil
	}
	logger.Info("migrations: database is up to date", zap.Uint("version", version))
	return nil
}
