package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equisy/equisy-api/internal/domain"
)

// AdminLogRepo stores admin change history in the public schema.
type AdminLogRepo struct {
	pool *pgxpool.Pool
}

func NewAdminLogRepo(pool *pgxpool.Pool) *AdminLogRepo {
	return &AdminLogRepo{pool: pool}
}

func (r *AdminLogRepo) Record(ctx context.Context, entry *domain.AdminLogEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("adminLogRepo.Record: marshal details: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO admin_log (id, tenant_id, user_id, content_type, object_id, object_repr, action, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.TenantID, entry.UserID, entry.ContentType,
		entry.ObjectID, truncate(entry.ObjectRepr, 200), entry.Action,
		raw, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("adminLogRepo.Record: %w", err)
	}

	return nil
}

func (r *AdminLogRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AdminLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, user_id, content_type, object_id, object_repr, action, details, created_at
		 FROM admin_log WHERE tenant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("adminLogRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	return scanAdminLog(rows, "adminLogRepo.ListByTenant")
}

func (r *AdminLogRepo) ListByObject(ctx context.Context, tenantID uuid.UUID, contentType, objectID string) ([]*domain.AdminLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, user_id, content_type, object_id, object_repr, action, details, created_at
		 FROM admin_log WHERE tenant_id = $1 AND content_type = $2 AND object_id = $3
		 ORDER BY created_at DESC`,
		tenantID, contentType, objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("adminLogRepo.ListByObject: %w", err)
	}
	defer rows.Close()

	return scanAdminLog(rows, "adminLogRepo.ListByObject")
}

func scanAdminLog(rows pgx.Rows, caller string) ([]*domain.AdminLogEntry, error) {
	var entries []*domain.AdminLogEntry
	for rows.Next() {
		var e domain.AdminLogEntry
		var details []byte

		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.UserID, &e.ContentType, &e.ObjectID,
			&e.ObjectRepr, &e.Action, &details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("%s: unmarshal details: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
