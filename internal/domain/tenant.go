package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicSchema holds the shared tables (tenants, domains, users).
const PublicSchema = "public"

const maxSchemaNameLen = 63

//nolint:gochecknoglobals // compiled once
var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Tenant is an isolated customer partition. Each tenant owns one Postgres schema.
type Tenant struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	SchemaName string     `json:"schema_name"`
	PaidUntil  time.Time  `json:"paid_until"`
	OnTrial    bool       `json:"on_trial"`
	OwnerID    *uuid.UUID `json:"owner_id,omitempty"`
	CreatedOn  time.Time  `json:"created_on"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Domain maps a hostname to a tenant.
type Domain struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Hostname  string    `json:"hostname"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTenant creates a Tenant with validated fields. When schemaName is empty
// it is derived from the tenant name.
func NewTenant(name, schemaName string, paidUntil time.Time, onTrial bool) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tenant: name is required")
	}
	if len(name) > 100 {
		return nil, errors.New("tenant: name must be at most 100 characters")
	}

	var err error
	if schemaName == "" {
		schemaName, err = DeriveSchemaName(name)
	} else {
		err = ValidateSchemaName(schemaName)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Tenant{
		ID:         uuid.New(),
		Name:       name,
		SchemaName: schemaName,
		PaidUntil:  paidUntil,
		OnTrial:    onTrial,
		CreatedOn:  now,
		UpdatedAt:  now,
	}, nil
}

// NewDomain creates a Domain for the given tenant with a normalized hostname.
func NewDomain(tenantID uuid.UUID, hostname string, primary bool) (*Domain, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("domain: tenant ID is required")
	}
	host := NormalizeHostname(hostname)
	if host == "" {
		return nil, errors.New("domain: hostname is required")
	}
	if len(host) > 253 {
		return nil, errors.New("domain: hostname must be at most 253 characters")
	}
	return &Domain{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Hostname:  host,
		IsPrimary: primary,
		CreatedAt: time.Now(),
	}, nil
}

// ValidateSchemaName reports whether name can be used as a tenant schema.
func ValidateSchemaName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidSchemaName)
	case len(name) > maxSchemaNameLen:
		return fmt.Errorf("%w: %q longer than %d characters", ErrInvalidSchemaName, name, maxSchemaNameLen)
	case !schemaNamePattern.MatchString(name):
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, name)
	case name == PublicSchema, name == "information_schema", strings.HasPrefix(name, "pg_"):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSchemaName, name)
	}
	return nil
}

// DeriveSchemaName turns a tenant name into a schema name: lowercase,
// runs of other characters collapsed to "_", prefixed with "t_" when the
// result would start with a digit or collide with a reserved name.
func DeriveSchemaName(name string) (string, error) {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	schema := strings.TrimRight(b.String(), "_")
	if schema == "" {
		return "", fmt.Errorf("%w: cannot derive from %q", ErrInvalidSchemaName, name)
	}
	if schema[0] >= '0' && schema[0] <= '9' || schema == PublicSchema || strings.HasPrefix(schema, "pg_") || schema == "information_schema" {
		schema = "t_" + schema
	}
	if len(schema) > maxSchemaNameLen {
		schema = strings.TrimRight(schema[:maxSchemaNameLen], "_")
	}

	if err := ValidateSchemaName(schema); err != nil {
		return "", err
	}
	return schema, nil
}

// NormalizeHostname lowercases a Host header value and strips the port and
// any trailing dot.
func NormalizeHostname(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return strings.TrimSuffix(host, ".")
}

type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySchema(ctx context.Context, schemaName string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
	ListAll(ctx context.Context) ([]*Tenant, error)
}

type DomainRepository interface {
	Create(ctx context.Context, d *Domain) error
	GetByHostname(ctx context.Context, hostname string) (*Domain, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Domain, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ProvisionRequest describes a new tenant with its primary domain. Owner
// is optional.
type ProvisionRequest struct {
	Tenant       *Tenant
	Domain       *Domain
	Owner        *Membership
	CreateSchema bool
}

// TenantProvisioner creates and removes tenants together with their schemas.
type TenantProvisioner interface {
	Provision(ctx context.Context, req ProvisionRequest) error
	Deprovision(ctx context.Context, tenantID uuid.UUID, dropSchema bool) (*Tenant, error)
	MigrateSchema(ctx context.Context, schema string) (int, error)
	SchemaExists(ctx context.Context, schema string) (bool, error)
}
