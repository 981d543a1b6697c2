package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/equisy/equisy-api/internal/domain"
)

// Runs against a real database when EQUISY_TEST_DATABASE_URL is set.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("EQUISY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EQUISY_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := New(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.MigratePublic(ctx)
	require.NoError(t, err)

	return s
}

func TestIntegration_ProvisionCreatesQueryableSchema(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner, err := domain.NewUser("owner-"+uuid.NewString()[:8]+"@example.com", "Olive", "Owner")
	require.NoError(t, err)
	require.NoError(t, s.Users().Create(ctx, owner))

	schema := "it_" + uuid.NewString()[:8]
	tenant, err := domain.NewTenant("Integration "+schema, schema, time.Now().AddDate(0, 0, 30), true)
	require.NoError(t, err)
	tenant.OwnerID = &owner.ID
	d, err := domain.NewDomain(tenant.ID, schema+".localhost", true)
	require.NoError(t, err)

	require.NoError(t, s.Provision(ctx, domain.ProvisionRequest{
		Tenant:       tenant,
		Domain:       d,
		Owner:        &domain.Membership{TenantID: tenant.ID, UserID: owner.ID, Role: domain.RoleOwner, CreatedAt: time.Now()},
		CreateSchema: true,
	}))
	t.Cleanup(func() { _, _ = s.Deprovision(context.Background(), tenant.ID, true) })

	exists, err := s.SchemaExists(ctx, schema)
	require.NoError(t, err)
	assert.True(t, exists)

	var count int64
	err = InSchema(ctx, s.Gorm(), schema, func(tx *gorm.DB) error {
		return tx.Table("image_masters").Count(&count).Error
	})
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := s.Domains().GetByHostname(ctx, d.Hostname)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.TenantID)

	m, err := s.Users().GetMembership(ctx, tenant.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, m.Role)

	n, err := s.MigrateSchema(ctx, schema)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = s.Provision(ctx, domain.ProvisionRequest{Tenant: tenant, Domain: d, CreateSchema: true})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.Deprovision(ctx, tenant.ID, true)
	require.NoError(t, err)

	exists, err = s.SchemaExists(ctx, schema)
	require.NoError(t, err)
	assert.False(t, exists)
}
