package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/config"
	"github.com/equisy/equisy-api/internal/logging"
	"github.com/equisy/equisy-api/internal/metrics"
	"github.com/equisy/equisy-api/internal/models"
	"github.com/equisy/equisy-api/internal/secrets"
	"github.com/equisy/equisy-api/internal/store/postgres"
	redisstore "github.com/equisy/equisy-api/internal/store/redis"
	"github.com/equisy/equisy-api/internal/tenancy"
)

// app holds the connections and services shared by every command.
type app struct {
	cfg     *config.Config
	store   *postgres.Store
	pubsub  *redisstore.PubSub
	metrics *metrics.Metrics
	auth    *auth.Service
	tenants *tenancy.Service
	cache   *redisstore.DomainCache

	logCloser io.Closer
}

// bootstrap loads configuration, resolves secret references and opens the
// database and Redis connections.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logCloser: logging.Setup(cfg.Log)}

	// Secrets needed to reach the database can only come from providers
	// that do not depend on it.
	early, err := earlyProvider(cfg)
	if err != nil {
		return nil, a.fail(err)
	}
	if err = cfg.ResolveSecrets(ctx, early); err != nil {
		return nil, a.fail(err)
	}
	if config.IsSecretRef(cfg.Database.Password) {
		return nil, a.fail(errors.New("EQUISY_DB_PASSWORD references a secret that cannot be resolved before the database is reachable"))
	}

	if cfg.Database.MaxConns > math.MaxInt32 {
		return nil, a.fail(fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns))
	}

	a.store, err = postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, a.fail(err)
	}

	if cfg.Secrets.Provider == "vault" {
		key, _ := cfg.Secrets.Key()
		vault, vaultErr := secrets.NewVault(key)
		if vaultErr != nil {
			return nil, a.fail(vaultErr)
		}
		chain := secrets.Chain{secrets.NewEnvProvider(), secrets.NewStoreProvider(a.store.Secrets(), vault)}
		if err = cfg.ResolveSecrets(ctx, chain); err != nil {
			return nil, a.fail(err)
		}
	}
	if missing := cfg.Unresolved(); len(missing) > 0 {
		return nil, a.fail(fmt.Errorf("unresolved secret references: %s", strings.Join(missing, ", ")))
	}

	a.pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, a.fail(err)
	}

	a.metrics = metrics.New()
	a.cache = redisstore.NewDomainCache(a.pubsub.Client(), cfg.Tenancy.CacheTTL)
	a.auth = auth.NewService(a.store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	a.tenants = tenancy.NewService(
		a.store,
		a.store.Tenants(),
		a.store.Domains(),
		a.store.Users(),
		a.cache,
		a.pubsub,
		a.metrics,
		tenancy.ServiceOptions{
			AutoCreateSchema: cfg.Tenancy.AutoCreateSchema,
			AutoDropSchema:   cfg.Tenancy.AutoDropSchema,
		},
	)

	log.Debug().Str("env", string(cfg.Env)).Str("secrets", cfg.Secrets.Provider).Msg("bootstrap complete")
	return a, nil
}

// earlyProvider is the secret provider usable before the database is open.
func earlyProvider(cfg *config.Config) (secrets.Provider, error) {
	switch cfg.Secrets.Provider {
	case "", "none":
		return secrets.None{}, nil
	case "env", "vault":
		return secrets.NewEnvProvider(), nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Secrets.Provider)
	}
}

// adminSite registers the tenant models with the admin.
func (a *app) adminSite() (*admin.Site, error) {
	site := admin.NewSite(a.cfg.Admin.SiteHeader, a.cfg.Admin.PageSize, a.cfg.Admin.Exempt)
	if err := site.RegisterApp(models.Web()); err != nil {
		return nil, err
	}
	return site, nil
}

func (a *app) fail(err error) error {
	a.Close()
	return err
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}
