package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/equisy/equisy-api/internal/secrets"
)

// SecretRepo implements secrets.SecretRepository on the app_secrets table.
type SecretRepo struct {
	pool *pgxpool.Pool
}

func NewSecretRepo(pool *pgxpool.Pool) *SecretRepo {
	return &SecretRepo{pool: pool}
}

// Put inserts the secret or replaces the value stored under its name.
func (r *SecretRepo) Put(ctx context.Context, s *secrets.Secret) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app_secrets (id, name, value, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.ID, s.Name, s.Value, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("secretRepo.Put: %w", err)
	}

	return nil
}

func (r *SecretRepo) GetByName(ctx context.Context, name string) (*secrets.Secret, error) {
	var s secrets.Secret

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, value, created_at, updated_at FROM app_secrets WHERE name = $1`,
		name,
	).Scan(&s.ID, &s.Name, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("secretRepo.GetByName: %w", secrets.ErrSecretNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("secretRepo.GetByName: %w", err)
	}

	return &s, nil
}

func (r *SecretRepo) List(ctx context.Context) ([]*secrets.Secret, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, value, created_at, updated_at FROM app_secrets ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("secretRepo.List: %w", err)
	}
	defer rows.Close()

	var list []*secrets.Secret
	for rows.Next() {
		var s secrets.Secret

		scanErr := rows.Scan(&s.ID, &s.Name, &s.Value, &s.CreatedAt, &s.UpdatedAt)
		if scanErr != nil {
			return nil, fmt.Errorf("secretRepo.List: scan: %w", scanErr)
		}

		list = append(list, &s)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("secretRepo.List: rows: %w", rowsErr)
	}

	return list, nil
}

func (r *SecretRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM app_secrets WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("secretRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("secretRepo.Delete: %w", secrets.ErrSecretNotFound)
	}

	return nil
}
