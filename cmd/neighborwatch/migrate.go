// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Skets-max/Project-473/internal/config"
	"github.com/Skets-max/Project-473/internal/store"
)

// NewMigrateCmd creates the migrate command group. Running it bare applies
// all pending migrations.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *MigrateDeps) *cobra.Command {
	var databaseURL string

	run := func(action func(cmd *cobra.Command, m Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return runMigrateWithDeps(cmd, databaseURL, args, action, deps)
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Long: `Apply or roll back the PostgreSQL schema. MySQL and SQLite databases
are migrated automatically by the server on startup.`,
		Args: cobra.NoArgs,
		RunE: run(migrateUp),
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default $"+config.EnvDatabaseURL+")")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  run(migrateUp),
	})

	var yes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all account data",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if !yes {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("refusing to drop all data without --yes")
			}
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	}
	down.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  run(migrateStatus),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Mark a version as applied to clear a dirty state",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, m Migrator, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").With("version", args[0]).Wrap(err)
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", version)
			return nil
		}),
	})

	return cmd
}

func runMigrateWithDeps(cmd *cobra.Command, databaseURL string, args []string, action func(*cobra.Command, Migrator, []string) error, deps *MigrateDeps) error {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.DatabaseURLGetter == nil {
		deps.DatabaseURLGetter = func() string {
			return os.Getenv(config.EnvDatabaseURL)
		}
	}

	if databaseURL == "" {
		databaseURL = deps.DatabaseURLGetter()
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").
			Errorf("--database-url or %s is required", config.EnvDatabaseURL)
	}

	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	return action(cmd, m, args)
}

func migrateUp(cmd *cobra.Command, m Migrator, _ []string) error {
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func migrateStatus(cmd *cobra.Command, m Migrator, _ []string) error {
	status, err := m.Status()
	if err != nil {
		return err
	}

	cmd.Printf("Current version: %d", status.Version)
	if status.Dirty {
		cmd.Print(" (dirty)")
	}
	cmd.Println()

	for _, v := range status.Applied {
		name, _ := store.MigrationName(v) //nolint:errcheck // name is cosmetic
		cmd.Printf("  [x] %s\n", migrationLabel(v, name))
	}
	for _, v := range status.Pending {
		name, _ := store.MigrationName(v) //nolint:errcheck // name is cosmetic
		cmd.Printf("  [ ] %s\n", migrationLabel(v, name))
	}
	return nil
}

func migrationLabel(version uint, name string) string {
	if name == "" {
		return strconv.FormatUint(uint64(version), 10)
	}
	return name
}
