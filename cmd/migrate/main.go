package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go-gin-event-admission/config"
	"go-gin-event-admission/internal/database"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadConfig()
	if err := migrateCommand(&cfg.Database).Execute(); err != nil {
		fmt.Println("[ERROR]", err)
		os.Exit(1)
	}
}

func migrateCommand(db *config.DatabaseConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "manage the database schema",
	}

	withMigrate := func(fn func(m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, err := database.NewMigrate(db)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "apply all pending migrations",
			RunE: withMigrate(func(m *migrate.Migrate, _ []string) error {
				return ignoreNoChange(m.Up())
			}),
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "roll back n migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				n := 1
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v < 1 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					n = v
				}
				return ignoreNoChange(m.Steps(-n))
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "print the current schema version",
			RunE: withMigrate(func(m *migrate.Migrate, _ []string) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migration applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty=%t)\n", v, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "set the version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		},
	)
	return root
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
