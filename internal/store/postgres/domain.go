package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equisy/equisy-api/internal/domain"
)

type DomainRepo struct {
	pool *pgxpool.Pool
}

func NewDomainRepo(pool *pgxpool.Pool) *DomainRepo {
	return &DomainRepo{pool: pool}
}

func (r *DomainRepo) Create(ctx context.Context, d *domain.Domain) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO domains (id, tenant_id, hostname, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.TenantID, d.Hostname, d.IsPrimary, d.CreatedAt,
	)
	if err != nil {
		return wrapErr("domainRepo.Create", err)
	}

	return nil
}

func (r *DomainRepo) GetByHostname(ctx context.Context, hostname string) (*domain.Domain, error) {
	var d domain.Domain

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, hostname, is_primary, created_at
		 FROM domains WHERE hostname = $1`,
		hostname,
	).Scan(&d.ID, &d.TenantID, &d.Hostname, &d.IsPrimary, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("domainRepo.GetByHostname: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("domainRepo.GetByHostname: %w", err)
	}

	return &d, nil
}

func (r *DomainRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, hostname, is_primary, created_at
		 FROM domains WHERE tenant_id = $1
		 ORDER BY is_primary DESC, hostname`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("domainRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var domains []*domain.Domain
	for rows.Next() {
		var d domain.Domain

		err = rows.Scan(&d.ID, &d.TenantID, &d.Hostname, &d.IsPrimary, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("domainRepo.ListByTenant: scan: %w", err)
		}

		domains = append(domains, &d)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("domainRepo.ListByTenant: rows: %w", err)
	}

	return domains, nil
}

// Delete removes a secondary domain. The primary domain goes away only with
// its tenant.
func (r *DomainRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM domains WHERE tenant_id = $1 AND id = $2 AND NOT is_primary`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("domainRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("domainRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
