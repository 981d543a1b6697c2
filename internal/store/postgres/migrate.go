package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/domain"
)

//go:embed migrations/public/*.sql migrations/tenant/*.sql
var migrationFS embed.FS

// Migration is one embedded SQL file. Version is the file name prefix
// before the first underscore.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// querier is satisfied by pgx.Tx, *pgx.Conn and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PublicMigrations returns the shared-schema migrations in order.
func PublicMigrations() ([]Migration, error) { return loadMigrations("migrations/public") }

// TenantMigrations returns the per-tenant migrations in order.
func TenantMigrations() ([]Migration, error) { return loadMigrations("migrations/tenant") }

func loadMigrations(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("postgres.loadMigrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, readErr := fs.ReadFile(migrationFS, path.Join(dir, e.Name()))
		if readErr != nil {
			return nil, fmt.Errorf("postgres.loadMigrations: %w", readErr)
		}
		version, _, _ := strings.Cut(e.Name(), "_")
		out = append(out, Migration{Version: version, Name: e.Name(), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	return out, nil
}

// applyMigrations runs every migration not yet recorded in the schema's
// schema_migrations table. It must run inside a transaction: the
// search_path change and the advisory lock are transaction scoped.
func applyMigrations(ctx context.Context, q querier, schema string, migrations []Migration) (int, error) {
	ident := pgx.Identifier{schema}.Sanitize()
	table := pgx.Identifier{schema, "schema_migrations"}.Sanitize()

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, schema); err != nil {
		return 0, fmt.Errorf("lock %s: %w", schema, err)
	}
	if _, err := q.Exec(ctx, `SET LOCAL search_path TO `+ident); err != nil {
		return 0, fmt.Errorf("search_path %s: %w", schema, err)
	}
	if _, err := q.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
		version    VARCHAR(32) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	applied := 0
	for _, m := range migrations {
		var done bool
		err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE version = $1)`, m.Version).Scan(&done)
		if err != nil {
			return applied, fmt.Errorf("check %s/%s: %w", schema, m.Name, err)
		}
		if done {
			continue
		}

		if _, err = q.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply %s/%s: %w", schema, m.Name, err)
		}
		if _, err = q.Exec(ctx, `INSERT INTO `+table+` (version) VALUES ($1)`, m.Version); err != nil {
			return applied, fmt.Errorf("record %s/%s: %w", schema, m.Name, err)
		}

		log.Info().Str("schema", schema).Str("migration", m.Name).Msg("migration applied")
		applied++
	}

	return applied, nil
}

// MigratePublic brings the shared schema up to date.
func (s *Store) MigratePublic(ctx context.Context) (int, error) {
	migrations, err := PublicMigrations()
	if err != nil {
		return 0, err
	}
	n, err := s.migrate(ctx, domain.PublicSchema, migrations)
	if err != nil {
		return n, fmt.Errorf("postgres.MigratePublic: %w", err)
	}
	return n, nil
}

// MigrateSchema brings one tenant schema up to date.
func (s *Store) MigrateSchema(ctx context.Context, schema string) (int, error) {
	if err := domain.ValidateSchemaName(schema); err != nil {
		return 0, fmt.Errorf("postgres.MigrateSchema: %w", err)
	}
	migrations, err := TenantMigrations()
	if err != nil {
		return 0, err
	}
	n, err := s.migrate(ctx, schema, migrations)
	if err != nil {
		return n, fmt.Errorf("postgres.MigrateSchema: %w", err)
	}
	return n, nil
}

func (s *Store) migrate(ctx context.Context, schema string, migrations []Migration) (int, error) {
	var n int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var applyErr error
		n, applyErr = applyMigrations(ctx, tx, schema, migrations)
		return applyErr
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
