package main

import (
	"github.com/spf13/cobra"

	"github.com/playgate/gatekeeper/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadDatabaseConfig(envFile)
			if err != nil {
				return err
			}
			if err := migrateUp(cfg.DatabaseURL); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})
	return cmd
}

func withMigrator(fn func(*store.Migrator) error) (err error) {
	cfg, err := loadDatabaseConfig(envFile)
	if err != nil {
		return err
	}
	m, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(m)
}

func migrateUp(databaseURL string) (err error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); err == nil {
			err = cerr
		}
	}()
	return m.Up()
}
