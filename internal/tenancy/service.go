package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/metrics"
	redisstore "github.com/equisy/equisy-api/internal/store/redis"
)

// Publisher sends an event payload to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type ServiceOptions struct {
	AutoCreateSchema bool
	AutoDropSchema   bool
}

// CreateInput describes a tenant to provision. SchemaName is derived from
// Name when empty; CreateSchema overrides ServiceOptions.AutoCreateSchema.
type CreateInput struct {
	Name         string
	SchemaName   string
	Hostname     string
	PaidUntil    time.Time
	OnTrial      bool
	OwnerID      *uuid.UUID
	CreateSchema *bool
}

// UpdateInput carries optional billing changes.
type UpdateInput struct {
	Name      *string
	PaidUntil *time.Time
	OnTrial   *bool
}

type Service struct {
	provisioner domain.TenantProvisioner
	tenants     domain.TenantRepository
	domains     domain.DomainRepository
	users       domain.UserRepository
	cache       Cache
	publisher   Publisher
	metrics     *metrics.Metrics
	opts        ServiceOptions
}

// NewService wires the tenant lifecycle. cache, publisher and m may be nil.
func NewService(
	provisioner domain.TenantProvisioner,
	tenants domain.TenantRepository,
	domains domain.DomainRepository,
	users domain.UserRepository,
	cache Cache,
	publisher Publisher,
	m *metrics.Metrics,
	opts ServiceOptions,
) *Service {
	return &Service{
		provisioner: provisioner,
		tenants:     tenants,
		domains:     domains,
		users:       users,
		cache:       cache,
		publisher:   publisher,
		metrics:     m,
		opts:        opts,
	}
}

// Create provisions a tenant, its primary domain and, when requested, its
// schema. Nothing is stored if any step fails.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Tenant, *domain.Domain, error) {
	t, d, err := s.create(ctx, in)
	if err != nil {
		s.metrics.TenantProvisioned("error")
		return nil, nil, err
	}
	s.metrics.TenantProvisioned("ok")
	return t, d, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (*domain.Tenant, *domain.Domain, error) {
	if in.PaidUntil.IsZero() {
		return nil, nil, errors.New("tenancy.Create: paid_until is required")
	}

	t, err := domain.NewTenant(in.Name, in.SchemaName, in.PaidUntil, in.OnTrial)
	if err != nil {
		return nil, nil, fmt.Errorf("tenancy.Create: %w", err)
	}

	d, err := domain.NewDomain(t.ID, in.Hostname, true)
	if err != nil {
		return nil, nil, fmt.Errorf("tenancy.Create: %w", err)
	}

	var owner *domain.Membership
	if in.OwnerID != nil {
		if _, err = s.users.GetByID(ctx, *in.OwnerID); err != nil {
			return nil, nil, fmt.Errorf("tenancy.Create: owner: %w", err)
		}
		t.OwnerID = in.OwnerID
		owner = &domain.Membership{TenantID: t.ID, UserID: *in.OwnerID, Role: domain.RoleOwner, CreatedAt: t.CreatedOn}
	}

	createSchema := s.opts.AutoCreateSchema
	if in.CreateSchema != nil {
		createSchema = *in.CreateSchema
	}

	err = s.provisioner.Provision(ctx, domain.ProvisionRequest{
		Tenant:       t,
		Domain:       d,
		Owner:        owner,
		CreateSchema: createSchema,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("tenancy.Create: %w", err)
	}

	log.Info().Str("tenant", t.ID.String()).Str("schema", t.SchemaName).Str("host", d.Hostname).
		Bool("schema_created", createSchema).Msg("tenant provisioned")
	s.publish(ctx, domain.NewEvent(domain.EventTenantCreated, t.ID, t))

	return t, d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tenancy.Get: %w", err)
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Tenant, error) {
	list, err := s.tenants.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("tenancy.List: %w", err)
	}
	return list, nil
}

// Update applies billing changes and drops cached lookups for the tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tenancy.Update: %w", err)
	}

	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.PaidUntil != nil {
		t.PaidUntil = *in.PaidUntil
	}
	if in.OnTrial != nil {
		t.OnTrial = *in.OnTrial
	}
	if t.Name == "" || len(t.Name) > 100 {
		return nil, errors.New("tenancy.Update: name must be 1-100 characters")
	}

	if err = s.tenants.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("tenancy.Update: %w", err)
	}
	s.invalidateTenant(ctx, t.ID)

	return t, nil
}

// Delete removes the tenant. The schema is dropped only when
// AutoDropSchema is set.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	domains, err := s.domains.ListByTenant(ctx, id)
	if err != nil {
		return fmt.Errorf("tenancy.Delete: %w", err)
	}

	t, err := s.provisioner.Deprovision(ctx, id, s.opts.AutoDropSchema)
	if err != nil {
		return fmt.Errorf("tenancy.Delete: %w", err)
	}

	s.invalidate(ctx, hostnames(domains)...)
	log.Info().Str("tenant", t.ID.String()).Str("schema", t.SchemaName).
		Bool("schema_dropped", s.opts.AutoDropSchema).Msg("tenant deleted")
	s.publish(ctx, domain.NewEvent(domain.EventTenantDeleted, t.ID, t))

	return nil
}

func (s *Service) ListDomains(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	list, err := s.domains.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenancy.ListDomains: %w", err)
	}
	return list, nil
}

// AddDomain maps an extra hostname to the tenant.
func (s *Service) AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string) (*domain.Domain, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("tenancy.AddDomain: %w", err)
	}

	d, err := domain.NewDomain(tenantID, hostname, false)
	if err != nil {
		return nil, fmt.Errorf("tenancy.AddDomain: %w", err)
	}
	if err = s.domains.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("tenancy.AddDomain: %w", err)
	}

	s.invalidate(ctx, d.Hostname)
	s.publish(ctx, domain.NewEvent(domain.EventDomainAdded, tenantID, d))
	return d, nil
}

func (s *Service) RemoveDomain(ctx context.Context, tenantID, domainID uuid.UUID) error {
	domains, err := s.domains.ListByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("tenancy.RemoveDomain: %w", err)
	}
	if err = s.domains.Delete(ctx, tenantID, domainID); err != nil {
		return fmt.Errorf("tenancy.RemoveDomain: %w", err)
	}

	for _, d := range domains {
		if d.ID == domainID {
			s.invalidate(ctx, d.Hostname)
			s.publish(ctx, domain.NewEvent(domain.EventDomainRemoved, tenantID, d))
		}
	}
	return nil
}

// MigrateAll applies pending tenant migrations to every tenant schema.
// Tenants created without a schema are skipped. A failing schema does not
// stop the others; all failures are returned.
func (s *Service) MigrateAll(ctx context.Context) (int, error) {
	tenants, err := s.tenants.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("tenancy.MigrateAll: %w", err)
	}

	total := 0
	var errs []error
	for _, t := range tenants {
		exists, existsErr := s.provisioner.SchemaExists(ctx, t.SchemaName)
		if existsErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.SchemaName, existsErr))
			continue
		}
		if !exists {
			log.Info().Str("schema", t.SchemaName).Msg("tenant schema not created, skipping migrations")
			continue
		}

		n, migrateErr := s.provisioner.MigrateSchema(ctx, t.SchemaName)
		if migrateErr != nil {
			log.Error().Err(migrateErr).Str("schema", t.SchemaName).Msg("tenant migration failed")
			errs = append(errs, fmt.Errorf("%s: %w", t.SchemaName, migrateErr))
			continue
		}
		total += n
	}

	if len(errs) > 0 {
		return total, fmt.Errorf("tenancy.MigrateAll: %w", errors.Join(errs...))
	}
	return total, nil
}

func (s *Service) invalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	domains, err := s.domains.ListByTenant(ctx, tenantID)
	if err != nil {
		log.Warn().Err(err).Str("tenant", tenantID.String()).Msg("list domains for cache invalidation")
		return
	}
	s.invalidate(ctx, hostnames(domains)...)
}

func (s *Service) invalidate(ctx context.Context, hosts ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, hosts...); err != nil {
		log.Warn().Err(err).Strs("hosts", hosts).Msg("tenant cache invalidation failed")
	}
}

func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.Type).Msg("marshal event")
		return
	}
	if err = s.publisher.Publish(ctx, redisstore.TenantChannel(ev.TenantID), payload); err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("publish event")
	}
}

func hostnames(domains []*domain.Domain) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		out = append(out, d.Hostname)
	}
	return out
}
