package main

import (
	"fmt"

	"github.com/freightline/comms/internal/config"
	"github.com/freightline/comms/internal/db"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate tables and seed proposal types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}
	fmt.Fprintf(out, "Connected to %s at %s:%d\n", cfg.DB.Database, cfg.DB.Host, cfg.DB.Port)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if len(cfg.ProposalTypes) > 0 {
		if err := db.SeedProposalTypes(gormDB, cfg.ProposalTypes); err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded %d proposal type(s)\n", len(cfg.ProposalTypes))
	}
	return nil
}
