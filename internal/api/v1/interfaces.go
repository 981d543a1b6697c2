package v1

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/admin"
	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/tenancy"
)

// TenantService abstracts tenant lifecycle operations for handler testing.
// *tenancy.Service satisfies this interface.
type TenantService interface {
	Create(ctx context.Context, in tenancy.CreateInput) (*domain.Tenant, *domain.Domain, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, in tenancy.UpdateInput) (*domain.Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListDomains(ctx context.Context, tenantID uuid.UUID) ([]*domain.Domain, error)
	AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string) (*domain.Domain, error)
	RemoveDomain(ctx context.Context, tenantID, domainID uuid.UUID) error
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, tenantID uuid.UUID, in auth.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, tenantID uuid.UUID, email, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListMembers(ctx context.Context, tenantID uuid.UUID) ([]auth.Member, error)
	AddMember(ctx context.Context, tenantID uuid.UUID, email, role string) (*auth.Member, error)
	RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error
}

// AdminStore abstracts the generic admin CRUD for handler testing.
// *admin.Store satisfies this interface.
type AdminStore interface {
	List(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, p admin.ListParams) (*admin.Page, error)
	Get(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64) (any, error)
	Create(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, data map[string]any) (any, error)
	Update(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64, data map[string]any) (any, error)
	Delete(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, id int64) error
	RunAction(ctx context.Context, scope admin.Scope, ma *admin.ModelAdmin, name string, ids []int64) (int, error)
}

// MediaStorage persists uploaded files.
// media.Storage implementations satisfy this interface.
type MediaStorage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
