package tenancy_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

type mockTenantRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	updateFunc  func(ctx context.Context, t *domain.Tenant) error
	listFunc    func(ctx context.Context, limit, offset int) ([]*domain.Tenant, error)
	listAllFunc func(ctx context.Context) ([]*domain.Tenant, error)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTenantRepo) GetBySchema(context.Context, string) (*domain.Tenant, error) {
	return nil, domain.ErrNotFound
}

func (m *mockTenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTenantRepo) List(ctx context.Context, limit, offset int) ([]*domain.Tenant, error) {
	return m.listFunc(ctx, limit, offset)
}

func (m *mockTenantRepo) ListAll(ctx context.Context) ([]*domain.Tenant, error) {
	return m.listAllFunc(ctx)
}

type mockDomainRepo struct {
	createFunc        func(ctx context.Context, d *domain.Domain) error
	getByHostnameFunc func(ctx context.Context, hostname string) (*domain.Domain, error)
	listByTenantFunc  func(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error)
	deleteFunc        func(ctx context.Context, tenantID, id uuid.UUID) error
}

func (m *mockDomainRepo) Create(ctx context.Context, d *domain.Domain) error {
	return m.createFunc(ctx, d)
}

func (m *mockDomainRepo) GetByHostname(ctx context.Context, hostname string) (*domain.Domain, error) {
	return m.getByHostnameFunc(ctx, hostname)
}

func (m *mockDomainRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	return m.listByTenantFunc(ctx, tenantID)
}

func (m *mockDomainRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.deleteFunc(ctx, tenantID, id)
}

type mockUserRepo struct {
	domain.UserRepository
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

type mockProvisioner struct {
	provisionFunc   func(ctx context.Context, req domain.ProvisionRequest) error
	deprovisionFunc func(ctx context.Context, tenantID uuid.UUID, dropSchema bool) (*domain.Tenant, error)
	migrateFunc     func(ctx context.Context, schema string) (int, error)
	existsFunc      func(ctx context.Context, schema string) (bool, error)
}

func (m *mockProvisioner) Provision(ctx context.Context, req domain.ProvisionRequest) error {
	return m.provisionFunc(ctx, req)
}

func (m *mockProvisioner) Deprovision(ctx context.Context, tenantID uuid.UUID, dropSchema bool) (*domain.Tenant, error) {
	return m.deprovisionFunc(ctx, tenantID, dropSchema)
}

func (m *mockProvisioner) MigrateSchema(ctx context.Context, schema string) (int, error) {
	return m.migrateFunc(ctx, schema)
}

func (m *mockProvisioner) SchemaExists(ctx context.Context, schema string) (bool, error) {
	return m.existsFunc(ctx, schema)
}

// ---------------------------------------------------------------------------
// Cache and publisher
// ---------------------------------------------------------------------------

type memCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.Tenant
	invalidated []string
	getErr      error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*domain.Tenant)}
}

func (c *memCache) Get(_ context.Context, host string) (*domain.Tenant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[host], nil
}

func (c *memCache) Set(_ context.Context, host string, t *domain.Tenant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[host] = t
	return nil
}

func (c *memCache) Invalidate(_ context.Context, hosts ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hosts {
		delete(c.entries, h)
		c.invalidated = append(c.invalidated, h)
	}
	return nil
}

type published struct {
	channel string
	payload []byte
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{channel: channel, payload: payload})
	return nil
}
