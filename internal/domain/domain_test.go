package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equisy/equisy-api/internal/domain"
)

// ---------------------------------------------------------------------------
// Schema names
// ---------------------------------------------------------------------------

func TestValidateSchemaName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		schema  string
		wantErr bool
	}{
		{name: "simple", schema: "acme", wantErr: false},
		{name: "underscore prefix", schema: "_acme", wantErr: false},
		{name: "digits after first", schema: "acme_2024", wantErr: false},
		{name: "empty", schema: "", wantErr: true},
		{name: "uppercase", schema: "Acme", wantErr: true},
		{name: "leading digit", schema: "1acme", wantErr: true},
		{name: "dash", schema: "acme-corp", wantErr: true},
		{name: "quote injection", schema: `acme"; drop schema public; --`, wantErr: true},
		{name: "public reserved", schema: "public", wantErr: true},
		{name: "pg prefix reserved", schema: "pg_catalog", wantErr: true},
		{name: "information_schema reserved", schema: "information_schema", wantErr: true},
		{name: "too long", schema: strings.Repeat("a", 64), wantErr: true},
		{name: "max length", schema: strings.Repeat("a", 63), wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := domain.ValidateSchemaName(tt.schema)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidSchemaName)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDeriveSchemaName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Acme", want: "acme"},
		{in: "Acme Corp", want: "acme_corp"},
		{in: "  Acme -- Corp!! ", want: "acme_corp"},
		{in: "42 Labs", want: "t_42_labs"},
		{in: "Public", want: "t_public"},
		{in: "PG Tools", want: "t_pg_tools"},
		{in: "Équipe Zéro", want: "quipe_z_ro"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := domain.DeriveSchemaName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, domain.ValidateSchemaName(got))
		})
	}

	t.Run("only symbols", func(t *testing.T) {
		t.Parallel()

		_, err := domain.DeriveSchemaName("!!!")
		require.ErrorIs(t, err, domain.ErrInvalidSchemaName)
	})

	t.Run("truncated to 63", func(t *testing.T) {
		t.Parallel()

		got, err := domain.DeriveSchemaName(strings.Repeat("ab ", 40))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), 63)
		assert.False(t, strings.HasSuffix(got, "_"))
	})
}

// ---------------------------------------------------------------------------
// Tenants and domains
// ---------------------------------------------------------------------------

func TestNewTenant(t *testing.T) {
	t.Parallel()

	paidUntil := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("derives schema", func(t *testing.T) {
		t.Parallel()

		tenant, err := domain.NewTenant("Acme Corp", "", paidUntil, true)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, tenant.ID)
		assert.Equal(t, "acme_corp", tenant.SchemaName)
		assert.True(t, tenant.OnTrial)
		assert.Equal(t, paidUntil, tenant.PaidUntil)
		assert.False(t, tenant.CreatedOn.IsZero())
	})

	t.Run("explicit schema validated", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTenant("Acme", "Bad-Schema", paidUntil, false)
		require.ErrorIs(t, err, domain.ErrInvalidSchemaName)
	})

	t.Run("name required", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTenant("   ", "", paidUntil, false)
		require.Error(t, err)
	})

	t.Run("name too long", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTenant(strings.Repeat("x", 101), "x", paidUntil, false)
		require.Error(t, err)
	})
}

func TestNormalizeHostname(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Acme.Example.COM":      "acme.example.com",
		"acme.example.com:8000": "acme.example.com",
		"acme.example.com.":     "acme.example.com",
		"[::1]:8080":            "::1",
		"  localhost  ":         "localhost",
		"":                      "",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, domain.NormalizeHostname(in))
		})
	}
}

func TestNewDomain(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	d, err := domain.NewDomain(tenantID, "Acme.localhost:8000", true)
	require.NoError(t, err)
	assert.Equal(t, "acme.localhost", d.Hostname)
	assert.True(t, d.IsPrimary)
	assert.Equal(t, tenantID, d.TenantID)

	_, err = domain.NewDomain(uuid.Nil, "acme.localhost", false)
	require.Error(t, err)

	_, err = domain.NewDomain(tenantID, "  ", false)
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestNewUser_Defaults(t *testing.T) {
	t.Parallel()

	u, err := domain.NewUser("jane@example.com", "Jane", "Doe")
	require.NoError(t, err)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsSuperuser)
	assert.Equal(t, domain.UserTypeTenantUser, u.UserType)
	assert.Equal(t, domain.DefaultProfileImage, u.ProfileImage)
	assert.Equal(t, "Jane Doe", u.FullName())

	_, err = domain.NewUser("", "Jane", "Doe")
	require.Error(t, err)
}

func TestUser_FullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Jane", (&domain.User{FirstName: "Jane"}).FullName())
	assert.Equal(t, "Doe", (&domain.User{LastName: "Doe"}).FullName())
	assert.Equal(t, "x@y.z", (&domain.User{Email: "x@y.z"}).FullName())
}

func TestUserTypeAndGender_Valid(t *testing.T) {
	t.Parallel()

	for _, ut := range []domain.UserType{
		domain.UserTypeTenantOwner, domain.UserTypeTenantUser, domain.UserTypeSupport, domain.UserTypeDeveloper,
	} {
		assert.True(t, ut.Valid(), string(ut))
	}
	assert.False(t, domain.UserType("Admin").Valid())

	assert.True(t, domain.GenderUnset.Valid())
	assert.True(t, domain.GenderOther.Valid())
	assert.False(t, domain.Gender("unknown").Valid())
}

func TestValidRole(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.ValidRole(domain.RoleOwner))
	assert.True(t, domain.ValidRole(domain.RoleStaff))
	assert.True(t, domain.ValidRole(domain.RoleMember))
	assert.False(t, domain.ValidRole(domain.RoleSuperuser))
	assert.False(t, domain.ValidRole(""))
}
