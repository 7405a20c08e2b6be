package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadCLIConfig()
		if err != nil {
			return err
		}
		cfg.Database.AutoMigrate = false

		ctx := cmd.Context()
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err = repository.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			return err
		}
		return printVersion(ctx, cfg, db)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the applied migration version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadCLIConfig()
		if err != nil {
			return err
		}
		cfg.Database.AutoMigrate = false

		ctx := cmd.Context()
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return printVersion(ctx, cfg, db)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func printVersion(ctx context.Context, cfg *config.Config, db *sql.DB) error {
	version, err := repository.MigrationVersion(ctx, db, cfg.Database.Driver)
	if err != nil {
		return err
	}
	fmt.Printf("driver: %s\n", cfg.Database.Driver)
	fmt.Printf("version: %d\n", version)
	return nil
}

func loadCLIConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err = configureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
