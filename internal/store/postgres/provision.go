package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/equisy/equisy-api/internal/domain"
)

// Provision stores the tenant, its primary domain and owner membership,
// then creates and migrates the tenant schema, all in one transaction.
func (s *Store) Provision(ctx context.Context, req domain.ProvisionRequest) error {
	migrations, err := TenantMigrations()
	if err != nil {
		return fmt.Errorf("postgres.Provision: %w", err)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return provision(ctx, tx, req, migrations)
	})
	if err != nil {
		return fmt.Errorf("postgres.Provision: %w", err)
	}

	return nil
}

func provision(ctx context.Context, q querier, req domain.ProvisionRequest, migrations []Migration) error {
	t := req.Tenant
	if t == nil || req.Domain == nil {
		return errors.New("tenant and domain are required")
	}
	if err := domain.ValidateSchemaName(t.SchemaName); err != nil {
		return err
	}

	_, err := q.Exec(ctx,
		`INSERT INTO public.tenants (id, name, schema_name, paid_until, on_trial, owner_id, created_on, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Name, t.SchemaName, t.PaidUntil, t.OnTrial, t.OwnerID, t.CreatedOn, t.UpdatedAt,
	)
	if err != nil {
		return wrapErr("insert tenant", err)
	}

	d := req.Domain
	_, err = q.Exec(ctx,
		`INSERT INTO public.domains (id, tenant_id, hostname, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, t.ID, d.Hostname, d.IsPrimary, d.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert domain", err)
	}

	if m := req.Owner; m != nil {
		_, err = q.Exec(ctx,
			`INSERT INTO public.tenant_memberships (tenant_id, user_id, role, created_at)
			 VALUES ($1, $2, $3, $4)`,
			t.ID, m.UserID, m.Role, m.CreatedAt,
		)
		if err != nil {
			return wrapErr("insert owner membership", err)
		}
	}

	if !req.CreateSchema {
		return nil
	}

	if _, err = q.Exec(ctx, `CREATE SCHEMA `+pgx.Identifier{t.SchemaName}.Sanitize()); err != nil {
		return wrapErr("create schema", err)
	}
	if _, err = applyMigrations(ctx, q, t.SchemaName, migrations); err != nil {
		return err
	}

	return nil
}

// Deprovision deletes the tenant row (domains, memberships and admin log
// cascade) and optionally drops its schema. It returns the deleted tenant.
func (s *Store) Deprovision(ctx context.Context, tenantID uuid.UUID, dropSchema bool) (*domain.Tenant, error) {
	var deleted *domain.Tenant

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		deleted, err = deprovision(ctx, tx, tenantID, dropSchema)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres.Deprovision: %w", err)
	}

	return deleted, nil
}

func deprovision(ctx context.Context, q querier, tenantID uuid.UUID, dropSchema bool) (*domain.Tenant, error) {
	t, err := scanTenant(q.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM public.tenants WHERE id = $1 FOR UPDATE`, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock tenant: %w", err)
	}

	if _, err = q.Exec(ctx, `DELETE FROM public.tenants WHERE id = $1`, tenantID); err != nil {
		return nil, fmt.Errorf("delete tenant: %w", err)
	}

	if dropSchema {
		if _, err = q.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{t.SchemaName}.Sanitize()+` CASCADE`); err != nil {
			return nil, fmt.Errorf("drop schema: %w", err)
		}
	}

	return t, nil
}

// SchemaExists reports whether the named schema is present.
func (s *Store) SchemaExists(ctx context.Context, schema string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`, schema,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres.SchemaExists: %w", err)
	}
	return exists, nil
}
