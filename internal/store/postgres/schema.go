package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"

	"github.com/equisy/equisy-api/internal/domain"
)

// InSchema runs fn in a transaction whose search_path is the tenant schema
// followed by public. Unqualified table names in fn resolve to the tenant.
func InSchema(ctx context.Context, db *gorm.DB, schema string, fn func(tx *gorm.DB) error) error {
	if schema != domain.PublicSchema {
		if err := domain.ValidateSchemaName(schema); err != nil {
			return fmt.Errorf("postgres.InSchema: %w", err)
		}
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(searchPathSQL(schema)).Error; err != nil {
			return fmt.Errorf("postgres.InSchema: set search_path: %w", err)
		}
		return fn(tx)
	})
}

func searchPathSQL(schema string) string {
	if schema == domain.PublicSchema {
		return `SET LOCAL search_path TO public`
	}
	return `SET LOCAL search_path TO ` + pgx.Identifier{schema}.Sanitize() + `, public`
}
