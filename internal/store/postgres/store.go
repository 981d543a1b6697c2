package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/secrets"
)

// Store owns the pgx pool. Public-schema tables go through the pgx
// repositories; tenant-scoped models go through the gorm handle opened on
// the same pool.
type Store struct {
	pool     *pgxpool.Pool
	orm      *gorm.DB
	tenants  *TenantRepo
	domains  *DomainRepo
	users    *UserRepo
	adminLog *AdminLogRepo
	secrets  *SecretRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	orm, err := OpenGorm(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: %w", err)
	}

	return &Store{
		pool:     pool,
		orm:      orm,
		tenants:  NewTenantRepo(pool),
		domains:  NewDomainRepo(pool),
		users:    NewUserRepo(pool),
		adminLog: NewAdminLogRepo(pool),
		secrets:  NewSecretRepo(pool),
	}, nil
}

// OpenGorm wraps the pool in a database/sql handle for gorm.
func OpenGorm(pool *pgxpool.Pool) (*gorm.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)

	orm, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return orm, nil
}

// GormConfig is shared by the runtime handle and tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(zerologWriter{}, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }
func (s *Store) Gorm() *gorm.DB      { return s.orm }

func (s *Store) Tenants() domain.TenantRepository    { return s.tenants }
func (s *Store) Domains() domain.DomainRepository    { return s.domains }
func (s *Store) Users() domain.UserRepository        { return s.users }
func (s *Store) AdminLog() domain.AdminLogRepository { return s.adminLog }
func (s *Store) Secrets() secrets.SecretRepository   { return s.secrets }
