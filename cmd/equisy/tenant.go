package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equisy/equisy-api/internal/tenancy"
)

type createTenantFlags struct {
	name       string
	schema     string
	hostname   string
	paidUntil  string
	trial      bool
	ownerEmail string
	noSchema   bool
}

func newCreateTenantCmd() *cobra.Command {
	var f createTenantFlags

	cmd := &cobra.Command{
		Use:   "create-tenant",
		Short: "Create a tenant with its schema and primary domain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if f.ownerEmail != "" {
				owner, lookupErr := a.store.Users().GetByEmail(ctx, f.ownerEmail)
				if lookupErr != nil {
					return fmt.Errorf("owner %s: %w", f.ownerEmail, lookupErr)
				}
				in.OwnerID = &owner.ID
			}

			t, d, err := a.tenants.Create(ctx, in)
			if err != nil {
				return err
			}

			log.Info().
				Str("tenant_id", t.ID.String()).
				Str("schema", t.SchemaName).
				Str("host", d.Hostname).
				Msg("tenant created")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.SchemaName, d.Hostname)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.name, "name", "", "tenant name")
	cmd.Flags().StringVar(&f.schema, "schema", "", "schema name (derived from the name when empty)")
	cmd.Flags().StringVar(&f.hostname, "host", "", "primary domain")
	cmd.Flags().StringVar(&f.paidUntil, "paid-until", "", "end of the paid period, YYYY-MM-DD (default: 30 days from now)")
	cmd.Flags().BoolVar(&f.trial, "trial", true, "tenant is on a trial")
	cmd.Flags().StringVar(&f.ownerEmail, "owner", "", "email of an existing user to make owner")
	cmd.Flags().BoolVar(&f.noSchema, "no-schema", false, "skip schema creation")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

// input validates the flags that do not need a database.
func (f createTenantFlags) input() (tenancy.CreateInput, error) {
	in := tenancy.CreateInput{
		Name:       f.name,
		SchemaName: f.schema,
		Hostname:   f.hostname,
		OnTrial:    f.trial,
		PaidUntil:  time.Now().UTC().AddDate(0, 0, 30).Truncate(24 * time.Hour),
	}
	if in.Name == "" || in.Hostname == "" {
		return in, errors.New("--name and --host are required")
	}
	if f.paidUntil != "" {
		t, err := time.Parse(time.DateOnly, f.paidUntil)
		if err != nil {
			return in, fmt.Errorf("--paid-until: %w", err)
		}
		in.PaidUntil = t
	}
	if f.noSchema {
		create := false
		in.CreateSchema = &create
	}
	return in, nil
}
