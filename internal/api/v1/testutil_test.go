package v1_test

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/server/middleware"
	"github.com/equisy/equisy-api/internal/tenancy"
)

// ---------------------------------------------------------------------------
// Context helpers: inject host resolution and user into context for DoCtx
// ---------------------------------------------------------------------------

func tenantCtx(tenantID uuid.UUID) context.Context {
	return middleware.WithTenant(context.Background(), tenantID, "acme", false)
}

func roleCtx(tenantID, userID uuid.UUID, role string) context.Context {
	return middleware.WithUser(tenantCtx(tenantID), userID, role)
}

func publicCtx() context.Context {
	return middleware.WithTenant(context.Background(), uuid.Nil, domain.PublicSchema, true)
}

func superuserCtx() context.Context {
	return middleware.WithUser(publicCtx(), uuid.New(), domain.RoleSuperuser)
}

// ---------------------------------------------------------------------------
// Mock TenantService
// ---------------------------------------------------------------------------

type mockTenantService struct {
	createFunc       func(ctx context.Context, in tenancy.CreateInput) (*domain.Tenant, *domain.Domain, error)
	getFunc          func(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	listFunc         func(ctx context.Context, limit, offset int) ([]*domain.Tenant, error)
	updateFunc       func(ctx context.Context, id uuid.UUID, in tenancy.UpdateInput) (*domain.Tenant, error)
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
	listDomainsFunc  func(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error)
	addDomainFunc    func(ctx context.Context, tenantID uuid.UUID, hostname string) (*domain.Domain, error)
	removeDomainFunc func(ctx context.Context, tenantID, domainID uuid.UUID) error
}

func (m *mockTenantService) Create(ctx context.Context, in tenancy.CreateInput) (*domain.Tenant, *domain.Domain, error) {
	return m.createFunc(ctx, in)
}

func (m *mockTenantService) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return m.getFunc(ctx, id)
}

func (m *mockTenantService) List(ctx context.Context, limit, offset int) ([]*domain.Tenant, error) {
	return m.listFunc(ctx, limit, offset)
}

func (m *mockTenantService) Update(ctx context.Context, id uuid.UUID, in tenancy.UpdateInput) (*domain.Tenant, error) {
	return m.updateFunc(ctx, id, in)
}

func (m *mockTenantService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockTenantService) ListDomains(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	return m.listDomainsFunc(ctx, tenantID)
}

func (m *mockTenantService) AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string) (*domain.Domain, error) {
	return m.addDomainFunc(ctx, tenantID, hostname)
}

func (m *mockTenantService) RemoveDomain(ctx context.Context, tenantID, domainID uuid.UUID) error {
	return m.removeDomainFunc(ctx, tenantID, domainID)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, tenantID uuid.UUID, in auth.RegisterInput) (*domain.User, error)
	loginFunc        func(ctx context.Context, tenantID uuid.UUID, email, password string) (*auth.TokenPair, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
	getUserFunc      func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	listMembersFunc  func(ctx context.Context, tenantID uuid.UUID) ([]auth.Member, error)
	addMemberFunc    func(ctx context.Context, tenantID uuid.UUID, email, role string) (*auth.Member, error)
	removeMemberFunc func(ctx context.Context, tenantID, userID uuid.UUID) error
}

func (m *mockAuthService) Register(ctx context.Context, tenantID uuid.UUID, in auth.RegisterInput) (*domain.User, error) {
	return m.registerFunc(ctx, tenantID, in)
}

func (m *mockAuthService) Login(ctx context.Context, tenantID uuid.UUID, email, password string) (*auth.TokenPair, error) {
	return m.loginFunc(ctx, tenantID, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

func (m *mockAuthService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return m.getUserFunc(ctx, userID)
}

func (m *mockAuthService) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]auth.Member, error) {
	return m.listMembersFunc(ctx, tenantID)
}

func (m *mockAuthService) AddMember(ctx context.Context, tenantID uuid.UUID, email, role string) (*auth.Member, error) {
	return m.addMemberFunc(ctx, tenantID, email, role)
}

func (m *mockAuthService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	return m.removeMemberFunc(ctx, tenantID, userID)
}

// ---------------------------------------------------------------------------
// Mock AdminStore
// ---------------------------------------------------------------------------

type mockAdminStore struct {
	listFunc      func(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, p admin.ListParams) (*admin.Page, error)
	getFunc       func(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64) (any, error)
	createFunc    func(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, data map[string]any) (any, error)
	updateFunc    func(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64, data map[string]any) (any, error)
	deleteFunc    func(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64) error
	runActionFunc func(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, name string, ids []int64) (int, error)
}

func (m *mockAdminStore) List(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, p admin.ListParams) (*admin.Page, error) {
	return m.listFunc(ctx, scope, ma, p)
}

func (m *mockAdminStore) Get(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64) (any, error) {
	return m.getFunc(ctx, scope, ma, id)
}

func (m *mockAdminStore) Create(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, data map[string]any) (any, error) {
	return m.createFunc(ctx, scope, ma, data)
}

func (m *mockAdminStore) Update(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64, data map[string]any) (any, error) {
	return m.updateFunc(ctx, scope, ma, id, data)
}

func (m *mockAdminStore) Delete(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64) error {
	return m.deleteFunc(ctx, scope, ma, id)
}

func (m *mockAdminStore) RunAction(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, name string, ids []int64) (int, error) {
	return m.runActionFunc(ctx, scope, ma, name, ids)
}

// ---------------------------------------------------------------------------
// Mock AdminLogRepository
// ---------------------------------------------------------------------------

type mockAdminLogRepo struct {
	recordFunc       func(ctx context.Context, entry *domain.AdminLogEntry) error
	listByTenantFunc func(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AdminLogEntry, error)
	listByObjectFunc func(ctx context.Context, tenantID uuid.UUID, contentType, objectID string) ([]*domain.AdminLogEntry, error)
}

func (m *mockAdminLogRepo) Record(ctx context.Context, entry *domain.AdminLogEntry) error {
	return m.recordFunc(ctx, entry)
}

func (m *mockAdminLogRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AdminLogEntry, error) {
	return m.listByTenantFunc(ctx, tenantID, limit, offset)
}

func (m *mockAdminLogRepo) ListByObject(ctx context.Context, tenantID uuid.UUID, contentType, objectID string) ([]*domain.AdminLogEntry, error) {
	return m.listByObjectFunc(ctx, tenantID, contentType, objectID)
}

// ---------------------------------------------------------------------------
// Mock MediaStorage
// ---------------------------------------------------------------------------

type mockStorage struct {
	saveFunc   func(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	deleteFunc func(ctx context.Context, key string) error
}

func (m *mockStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	return m.saveFunc(ctx, key, r, contentType)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.deleteFunc(ctx, key)
}
