package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/cost-tracker/internal/cost/sqlstore"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "bring the cost store schema to the configured version",
	}
	migrateRollback bool
	migrateVersion  int64
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest schema version")
	migrateCmd.Flags().Int64VarP(&migrateVersion, "version", "v", 0, "target version, defaults to store.version from config")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	lg := initLogger(cfg, os.Stderr)

	db, err := sqlstore.Connect(cfg.Store, lg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	migrator, err := sqlstore.NewMigrator(sqlDB, cfg.Store.Driver, lg)
	if err != nil {
		return err
	}

	if migrateRollback {
		version, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store %s rolled back to version %d\n", cfg.Store.Name, version)
		return nil
	}

	target := cfg.Store.Version
	if migrateVersion > 0 {
		target = migrateVersion
	}

	if err := migrator.UpTo(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "store %s at version %d\n", cfg.Store.Name, target)
	return nil
}
