// Package tenancy maps request hosts to tenants and manages the tenant
// lifecycle.
package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/metrics"
)

// ErrUnknownHost is returned when no domain matches the request host and
// the public fallback is disabled.
var ErrUnknownHost = errors.New("tenancy: unknown host")

// Cache stores hostname to tenant lookups. A miss returns (nil, nil).
type Cache interface {
	Get(ctx context.Context, host string) (*domain.Tenant, error)
	Set(ctx context.Context, host string, t *domain.Tenant) error
	Invalidate(ctx context.Context, hosts ...string) error
}

// Resolution is the schema context selected for one request.
type Resolution struct {
	Host   string
	Schema string
	Tenant *domain.Tenant // nil on the public schema
}

func (r *Resolution) IsPublic() bool {
	return r.Tenant == nil
}

type ResolverOptions struct {
	PublicDomain         string
	ShowPublicIfNoTenant bool
}

type Resolver struct {
	tenants domain.TenantRepository
	domains domain.DomainRepository
	cache   Cache
	opts    ResolverOptions
	metrics *metrics.Metrics
}

// NewResolver creates a Resolver. cache and m may be nil.
func NewResolver(tenants domain.TenantRepository, domains domain.DomainRepository, cache Cache, opts ResolverOptions, m *metrics.Metrics) *Resolver {
	opts.PublicDomain = domain.NormalizeHostname(opts.PublicDomain)
	return &Resolver{tenants: tenants, domains: domains, cache: cache, opts: opts, metrics: m}
}

// Resolve selects the schema for host. Cache failures fall through to the
// database.
func (r *Resolver) Resolve(ctx context.Context, host string) (*Resolution, error) {
	host = domain.NormalizeHostname(host)

	if host == r.opts.PublicDomain {
		r.metrics.TenantResolved("public")
		return r.public(host), nil
	}

	if r.cache != nil {
		t, err := r.cache.Get(ctx, host)
		if err != nil {
			log.Warn().Err(err).Str("host", host).Msg("tenant cache read failed")
		}
		if t != nil {
			r.metrics.TenantResolved("cache")
			return &Resolution{Host: host, Schema: t.SchemaName, Tenant: t}, nil
		}
	}

	d, err := r.domains.GetByHostname(ctx, host)
	if errors.Is(err, domain.ErrNotFound) {
		if r.opts.ShowPublicIfNoTenant {
			r.metrics.TenantResolved("public")
			return r.public(host), nil
		}
		r.metrics.TenantResolved("unknown")
		return nil, fmt.Errorf("tenancy.Resolve %q: %w", host, ErrUnknownHost)
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy.Resolve: %w", err)
	}

	t, err := r.tenants.GetByID(ctx, d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("tenancy.Resolve: %w", err)
	}

	if r.cache != nil {
		if err = r.cache.Set(ctx, host, t); err != nil {
			log.Warn().Err(err).Str("host", host).Msg("tenant cache write failed")
		}
	}

	r.metrics.TenantResolved("db")
	return &Resolution{Host: host, Schema: t.SchemaName, Tenant: t}, nil
}

func (r *Resolver) public(host string) *Resolution {
	return &Resolution{Host: host, Schema: domain.PublicSchema}
}
