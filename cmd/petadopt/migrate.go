// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/petadopt/petadopt/internal/config"
	"github.com/petadopt/petadopt/internal/store"
)

var databaseURLFlag string

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back and inspect the embedded PostgreSQL schema migrations.
The database URL comes from --database-url, PETADOPT_DATABASE__URL or DATABASE_URL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURLFlag, "database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd)
		},
	})

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					return m.Down()
				}
				cmd.Printf("Rolling back %d migration(s)...\n", steps)
				return m.Steps(-steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Println(formatVersion(v, dirty))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "List migrations that have not been applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("Schema is up to date")
					return nil
				}
				for _, mig := range pending {
					cmd.Printf("%06d  %s\n", mig.Version, mig.Name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations (clears dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(func(m *store.Migrator) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Schema version forced to %d\n", v)
				return nil
			})
		},
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command) error {
	url, err := getDatabaseURL()
	if err != nil {
		return err
	}
	cmd.Println("Running migrations...")
	if err := migrateUp(url); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

// migrateUp applies all pending migrations to databaseURL.
func migrateUp(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // migration result takes precedence
	return m.Up()
}

func withMigrator(fn func(*store.Migrator) error) error {
	url, err := getDatabaseURL()
	if err != nil {
		return err
	}
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // command result takes precedence
	return fn(m)
}

// getDatabaseURL resolves the migration target without requiring the rest of
// the configuration to be valid.
func getDatabaseURL() (string, error) {
	for _, url := range []string{
		databaseURLFlag,
		os.Getenv(config.EnvPrefix + "DATABASE__URL"),
		os.Getenv("DATABASE_URL"),
	} {
		if url != "" {
			return url, nil
		}
	}
	return "", oops.Code("CONFIG_INVALID").
		Errorf("database URL is required: set --database-url, %sDATABASE__URL or DATABASE_URL", config.EnvPrefix)
}

// parseForceVersion parses the VERSION argument of migrate force. Range
// checks are left to Migrator.Force.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer, got %q", s)
	}
	return v, nil
}

func formatVersion(v uint, dirty bool) string {
	switch {
	case v == 0 && !dirty:
		return "No migrations applied"
	case dirty:
		return fmt.Sprintf("Version %d (dirty: run 'migrate force' after fixing the schema)", v)
	default:
		return fmt.Sprintf("Version %d", v)
	}
}
