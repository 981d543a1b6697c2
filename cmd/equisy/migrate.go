package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending public and tenant schema migrations",
		Long: `Apply pending migrations to the public schema, then to every tenant schema.

Tenants created with --no-schema have no schema yet and are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return runMigrations(cmd.Context(), a)
		},
	}
}

// runMigrations migrates the public schema first; tenant schemas are
// listed from its tables.
func runMigrations(ctx context.Context, a *app) error {
	n, err := a.store.MigratePublic(ctx)
	if err != nil {
		return fmt.Errorf("migrate public: %w", err)
	}
	log.Info().Int("applied", n).Msg("public schema migrated")

	n, err = a.tenants.MigrateAll(ctx)
	if err != nil {
		return fmt.Errorf("migrate tenants: %w", err)
	}
	log.Info().Int("applied", n).Msg("tenant schemas migrated")
	return nil
}
