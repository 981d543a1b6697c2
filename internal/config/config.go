package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Environment selects a settings profile.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// SecretRefPrefix marks a value that must be fetched from the secret provider.
const SecretRefPrefix = "secret://"

// devJWTSecret is only accepted in the development profile.
const devJWTSecret = "equisy-insecure-development-signing-key" //nolint:gosec // dev-only default

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Env      Environment
	Debug    bool
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Tenancy  TenancyConfig
	Media    MediaConfig
	Secrets  SecretsConfig
	Admin    AdminConfig
	Log      LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	AllowedHosts []string
}

// TenancyConfig controls host resolution and schema lifecycle.
type TenancyConfig struct {
	PublicDomain         string
	ShowPublicIfNoTenant bool
	AutoCreateSchema     bool
	AutoDropSchema       bool
	CacheTTL             time.Duration
}

// MediaConfig selects where uploaded files are stored.
type MediaConfig struct {
	Backend           string // "disk" or "s3"
	Root              string
	BaseURL           string
	MaxUploadBytes    int64
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string //nolint:gosec // G117: object storage credential config
}

// SecretsConfig selects the external secret provider.
type SecretsConfig struct {
	Provider string // "none", "env" or "vault"
	VaultKey string //nolint:gosec // hex-encoded AES-256 key
}

// AdminConfig customizes the generated admin.
type AdminConfig struct {
	SiteHeader string
	Exempt     []string
	PageSize   int
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from environment variables. The EQUISY_ENV
// variable selects the profile; the development profile also reads a .env
// file from the working directory when one exists.
func Load() (*Config, error) {
	env := Environment(strings.ToLower(getEnv("EQUISY_ENV", string(EnvDevelopment))))
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("config.Load: EQUISY_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, env)
	}

	if env == EnvDevelopment {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config.Load: read .env: %w", err)
		}
	}

	dev := env == EnvDevelopment

	debug, err := getEnvBool("EQUISY_DEBUG", dev)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbPort, err := getEnvInt("EQUISY_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("EQUISY_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("EQUISY_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("EQUISY_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("EQUISY_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("EQUISY_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("EQUISY_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	showPublic, err := getEnvBool("EQUISY_SHOW_PUBLIC_IF_NO_TENANT", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	autoCreate, err := getEnvBool("EQUISY_AUTO_CREATE_SCHEMA", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	autoDrop, err := getEnvBool("EQUISY_AUTO_DROP_SCHEMA", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cacheTTL, err := getEnvDuration("EQUISY_TENANT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxUpload, err := getEnvInt("EQUISY_MEDIA_MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pageSize, err := getEnvInt("EQUISY_ADMIN_PAGE_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	logMaxSize, err := getEnvInt("EQUISY_LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	logMaxBackups, err := getEnvInt("EQUISY_LOG_MAX_BACKUPS", 3)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	logMaxAge, err := getEnvInt("EQUISY_LOG_MAX_AGE_DAYS", 28)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Env:   env,
		Debug: debug,
		Database: DatabaseConfig{
			Host:     getEnv("EQUISY_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("EQUISY_DB_USER", pick(dev, "postgres", "equisy")),
			Password: getEnv("EQUISY_DB_PASSWORD", pick(dev, "postgres", "")),
			DBName:   getEnv("EQUISY_DB_NAME", pick(dev, "equisy-test", "equisy")),
			SSLMode:  getEnv("EQUISY_DB_SSLMODE", pick(dev, "disable", "require")),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("EQUISY_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("EQUISY_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("EQUISY_JWT_SECRET", pick(dev, devJWTSecret, "")),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("EQUISY_SERVER_ADDR", ":8000"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("EQUISY_CORS_ORIGINS", []string{"http://localhost:3000"}),
			AllowedHosts: getEnvList("EQUISY_ALLOWED_HOSTS", pickList(dev, []string{"*"}, nil)),
		},
		Tenancy: TenancyConfig{
			PublicDomain:         strings.ToLower(getEnv("EQUISY_TENANT_USERS_DOMAIN", "localhost")),
			ShowPublicIfNoTenant: showPublic,
			AutoCreateSchema:     autoCreate,
			AutoDropSchema:       autoDrop,
			CacheTTL:             cacheTTL,
		},
		Media: MediaConfig{
			Backend:           getEnv("EQUISY_MEDIA_BACKEND", "disk"),
			Root:              getEnv("EQUISY_MEDIA_ROOT", "media"),
			BaseURL:           getEnv("EQUISY_MEDIA_URL", "/media/"),
			MaxUploadBytes:    int64(maxUpload),
			S3Bucket:          getEnv("EQUISY_MEDIA_S3_BUCKET", ""),
			S3Region:          getEnv("EQUISY_MEDIA_S3_REGION", "us-east-1"),
			S3Endpoint:        getEnv("EQUISY_MEDIA_S3_ENDPOINT", ""),
			S3AccessKeyID:     getEnv("EQUISY_MEDIA_S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getEnv("EQUISY_MEDIA_S3_SECRET_ACCESS_KEY", ""),
		},
		Secrets: SecretsConfig{
			Provider: getEnv("EQUISY_SECRETS_PROVIDER", "none"),
			VaultKey: getEnv("EQUISY_SECRETS_VAULT_KEY", ""),
		},
		Admin: AdminConfig{
			SiteHeader: getEnv("EQUISY_ADMIN_SITE_HEADER", "Equisy Developer's Admin"),
			Exempt:     getEnvList("EQUISY_ADMIN_EXEMPT", nil),
			PageSize:   pageSize,
		},
		Log: LogConfig{
			Level:      getEnv("EQUISY_LOG_LEVEL", pick(debug, "debug", "info")),
			Format:     getEnv("EQUISY_LOG_FORMAT", pick(dev, "text", "json")),
			File:       getEnv("EQUISY_LOG_FILE", ""),
			MaxSizeMB:  logMaxSize,
			MaxBackups: logMaxBackups,
			MaxAgeDays: logMaxAge,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds. Values that are still
// secret references are checked after resolution.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("EQUISY_JWT_SECRET is required")
	}
	if !IsSecretRef(c.JWT.Secret) && len(c.JWT.Secret) < 32 {
		return errors.New("EQUISY_JWT_SECRET must be at least 32 characters")
	}

	if c.Env == EnvProduction {
		if c.JWT.Secret == devJWTSecret {
			return errors.New("EQUISY_JWT_SECRET must be set explicitly in production")
		}
		if len(c.Server.AllowedHosts) == 0 {
			return errors.New("EQUISY_ALLOWED_HOSTS is required in production")
		}
		if c.Debug {
			log.Warn().Msg("EQUISY_DEBUG=true in production exposes internal error details")
		}
		if c.Database.SSLMode == "disable" {
			log.Warn().Msg("EQUISY_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
		}
	} else if c.JWT.Secret == devJWTSecret {
		log.Warn().Msg("using the development JWT secret; set EQUISY_JWT_SECRET outside local development")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("EQUISY_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("EQUISY_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("EQUISY_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("EQUISY_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("EQUISY_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("EQUISY_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Tenancy.PublicDomain == "" {
		return errors.New("EQUISY_TENANT_USERS_DOMAIN must not be empty")
	}
	if c.Tenancy.CacheTTL < 0 {
		return fmt.Errorf("EQUISY_TENANT_CACHE_TTL must not be negative, got %s", c.Tenancy.CacheTTL)
	}

	switch c.Media.Backend {
	case "disk":
	case "s3":
		if c.Media.S3Bucket == "" {
			return errors.New("EQUISY_MEDIA_S3_BUCKET is required for the s3 media backend")
		}
	default:
		return fmt.Errorf("EQUISY_MEDIA_BACKEND must be disk or s3, got %q", c.Media.Backend)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return fmt.Errorf("EQUISY_MEDIA_MAX_UPLOAD_BYTES must be positive, got %d", c.Media.MaxUploadBytes)
	}

	switch c.Secrets.Provider {
	case "none", "env":
	case "vault":
		if _, err := c.Secrets.Key(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("EQUISY_SECRETS_PROVIDER must be none, env or vault, got %q", c.Secrets.Provider)
	}

	if c.Admin.PageSize < 1 || c.Admin.PageSize > 1000 {
		return fmt.Errorf("EQUISY_ADMIN_PAGE_SIZE must be 1-1000, got %d", c.Admin.PageSize)
	}

	return nil
}

// Key decodes the hex-encoded vault key.
func (s SecretsConfig) Key() ([]byte, error) {
	key, err := hex.DecodeString(s.VaultKey)
	if err != nil || len(key) != 32 {
		return nil, errors.New("EQUISY_SECRETS_VAULT_KEY must be 64 hex characters")
	}
	return key, nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// SecretResolver fetches named secrets from an external store.
type SecretResolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// IsSecretRef reports whether v is a "secret://<name>" reference.
func IsSecretRef(v string) bool {
	return strings.HasPrefix(v, SecretRefPrefix) && len(v) > len(SecretRefPrefix)
}

func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"EQUISY_DB_PASSWORD":                &c.Database.Password,
		"EQUISY_REDIS_PASSWORD":             &c.Redis.Password,
		"EQUISY_JWT_SECRET":                 &c.JWT.Secret,
		"EQUISY_MEDIA_S3_ACCESS_KEY_ID":     &c.Media.S3AccessKeyID,
		"EQUISY_MEDIA_S3_SECRET_ACCESS_KEY": &c.Media.S3SecretAccessKey,
	}
}

// ResolveSecrets replaces secret references with values from r. References
// r cannot resolve are left in place; call Unresolved to list them.
func (c *Config) ResolveSecrets(ctx context.Context, r SecretResolver) error {
	for key, field := range c.secretFields() {
		if !IsSecretRef(*field) {
			continue
		}
		name := strings.TrimPrefix(*field, SecretRefPrefix)
		v, err := r.GetSecret(ctx, name)
		if err != nil {
			log.Debug().Err(err).Str("setting", key).Str("secret", name).Msg("secret not resolved")
			continue
		}
		*field = v
	}

	if !IsSecretRef(c.JWT.Secret) && len(c.JWT.Secret) < 32 {
		return errors.New("config.ResolveSecrets: resolved EQUISY_JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// Unresolved returns the settings that still hold secret references.
func (c *Config) Unresolved() []string {
	var out []string
	for key, field := range c.secretFields() {
		if IsSecretRef(*field) {
			out = append(out, key)
		}
	}
	return out
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func pickList(cond bool, a, b []string) []string {
	if cond {
		return a
	}
	return b
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
