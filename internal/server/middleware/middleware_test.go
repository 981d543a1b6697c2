package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equisy/equisy-api/internal/auth"
	"github.com/equisy/equisy-api/internal/domain"
	"github.com/equisy/equisy-api/internal/server/middleware"
	"github.com/equisy/equisy-api/internal/tenancy"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// contextHandler captures context values set by middleware so tests can
// assert that the correct tenant, user, and role were injected.
type contextHandler struct {
	tenantID uuid.UUID
	schema   string
	public   bool
	userID   uuid.UUID
	role     string
	called   bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.tenantID, _ = middleware.TenantIDFromContext(r.Context())
	h.schema, _ = middleware.SchemaFromContext(r.Context())
	h.public = middleware.IsPublicFromContext(r.Context())
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.role, _ = middleware.RoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// setTenant injects a tenant ID into the request context.
func setTenant(r *http.Request, tenantID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyTenantID, tenantID)
	return r.WithContext(ctx)
}

type fakeResolver struct {
	resolveFunc func(ctx context.Context, host string) (*tenancy.Resolution, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, host string) (*tenancy.Resolution, error) {
	return f.resolveFunc(ctx, host)
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestTenantIDFromContext(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		want := uuid.New()
		ctx := context.WithValue(context.Background(), middleware.ContextKeyTenantID, want)

		got, ok := middleware.TenantIDFromContext(ctx)

		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()

		got, ok := middleware.TenantIDFromContext(context.Background())

		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		// Store a string instead of uuid.UUID.
		ctx := context.WithValue(context.Background(), middleware.ContextKeyTenantID, "not-a-uuid")

		got, ok := middleware.TenantIDFromContext(ctx)

		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, got)
	})
}

func TestWithTenantAndUser(t *testing.T) {
	t.Parallel()

	tenantID, userID := uuid.New(), uuid.New()
	ctx := middleware.WithTenant(context.Background(), tenantID, "acme", false)
	ctx = middleware.WithUser(ctx, userID, domain.RoleStaff)

	gotTenant, ok := middleware.TenantIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, tenantID, gotTenant)

	schema, ok := middleware.SchemaFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme", schema)
	assert.False(t, middleware.IsPublicFromContext(ctx))

	gotUser, ok := middleware.UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, gotUser)

	role, ok := middleware.RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, domain.RoleStaff, role)

	assert.False(t, middleware.IsPublicFromContext(context.Background()))
}

// ===========================================================================
// 2. Host checks and tenant resolution
// ===========================================================================

func TestAllowedHosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{name: "wildcard", allowed: []string{"*"}, host: "anything.test", want: http.StatusOK},
		{name: "exact", allowed: []string{"localhost"}, host: "localhost:8000", want: http.StatusOK},
		{name: "subdomain pattern", allowed: []string{".example.com"}, host: "acme.example.com", want: http.StatusOK},
		{name: "subdomain pattern bare", allowed: []string{".example.com"}, host: "example.com", want: http.StatusOK},
		{name: "suffix is not a subdomain", allowed: []string{".example.com"}, host: "badexample.com", want: http.StatusBadRequest},
		{name: "not listed", allowed: []string{"localhost"}, host: "evil.test", want: http.StatusBadRequest},
		{name: "case insensitive", allowed: []string{"Acme.Example.com"}, host: "ACME.example.com", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.AllowedHosts(tt.allowed)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Host = tt.host
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestResolveTenant(t *testing.T) {
	t.Parallel()

	tenant := &domain.Tenant{ID: uuid.New(), Name: "Acme", SchemaName: "acme"}

	resolver := &fakeResolver{
		resolveFunc: func(_ context.Context, host string) (*tenancy.Resolution, error) {
			switch host {
			case "acme.localhost":
				return &tenancy.Resolution{Host: host, Schema: "acme", Tenant: tenant}, nil
			case "localhost":
				return &tenancy.Resolution{Host: host, Schema: domain.PublicSchema}, nil
			case "broken.localhost":
				return nil, errors.New("connection refused")
			}
			return nil, fmt.Errorf("lookup: %w", tenancy.ErrUnknownHost)
		},
	}

	t.Run("tenant host", func(t *testing.T) {
		t.Parallel()

		h := &contextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Host = "acme.localhost"
		rec := httptest.NewRecorder()

		middleware.ResolveTenant(resolver)(h).ServeHTTP(rec, req)

		require.True(t, h.called)
		assert.Equal(t, tenant.ID, h.tenantID)
		assert.Equal(t, "acme", h.schema)
		assert.False(t, h.public)
	})

	t.Run("public host", func(t *testing.T) {
		t.Parallel()

		h := &contextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Host = "localhost"
		rec := httptest.NewRecorder()

		middleware.ResolveTenant(resolver)(h).ServeHTTP(rec, req)

		require.True(t, h.called)
		assert.Equal(t, uuid.Nil, h.tenantID)
		assert.Equal(t, domain.PublicSchema, h.schema)
		assert.True(t, h.public)
	})

	t.Run("unknown host", func(t *testing.T) {
		t.Parallel()

		h := &contextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Host = "nobody.localhost"
		rec := httptest.NewRecorder()

		middleware.ResolveTenant(resolver)(h).ServeHTTP(rec, req)

		assert.False(t, h.called)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()

		h := &contextHandler{}
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Host = "broken.localhost"
		rec := httptest.NewRecorder()

		middleware.ResolveTenant(resolver)(h).ServeHTTP(rec, req)

		assert.False(t, h.called)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRequireTenant_PassesWithValidTenantID(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireTenant()(okHandler)
	req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireTenant_BlocksWhenTenantAbsent(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireTenant()(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid tenant required")
}

func TestRequireTenant_BlocksPublicHost(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireTenant()(okHandler)
	req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.Nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid tenant required")
}

func TestRequirePublic(t *testing.T) {
	t.Parallel()

	handler := middleware.RequirePublic()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req = req.WithContext(middleware.WithTenant(req.Context(), uuid.Nil, domain.PublicSchema, true))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req = req.WithContext(middleware.WithTenant(req.Context(), uuid.New(), "acme", false))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ===========================================================================
// 3. RateLimit middleware
// ===========================================================================

func TestRateLimit_NoTenantInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 1, 1)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	for i := range 2 {
		req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantID)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_IndependentPerTenant(t *testing.T) {
	t.Parallel()

	tenantA := uuid.New()
	tenantB := uuid.New()
	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	reqA := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantA)
	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, reqA)
	require.Equal(t, http.StatusOK, recA.Code)

	reqA2 := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantA)
	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, reqA2)
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	reqB := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantB)
	recB := httptest.NewRecorder()

	handler.ServeHTTP(recB, reqB)

	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", http.NoBody)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

// ===========================================================================
// 4. Auth middleware
// ===========================================================================

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

func tenantRequest(tenantID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	return req.WithContext(middleware.WithTenant(req.Context(), tenantID, "acme", tenantID == uuid.Nil))
}

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	userID := uuid.New()

	token, err := auth.IssueAccessToken(testJWTSecret, tenantID, userID, domain.RoleStaff, 15*time.Minute)
	require.NoError(t, err)

	h := &contextHandler{}
	req := tenantRequest(tenantID)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	require.True(t, h.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenantID, h.tenantID)
	assert.Equal(t, userID, h.userID)
	assert.Equal(t, domain.RoleStaff, h.role)
}

func TestAuth_PublicHostToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, uuid.Nil, userID, domain.RoleSuperuser, time.Minute)
	require.NoError(t, err)

	h := &contextHandler{}
	req := tenantRequest(uuid.Nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	require.True(t, h.called)
	assert.Equal(t, domain.RoleSuperuser, h.role)
}

func TestAuth_TokenForAnotherTenant_Returns401(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), uuid.New(), domain.RoleOwner, time.Minute)
	require.NoError(t, err)

	h := &contextHandler{}
	req := tenantRequest(uuid.New())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	assert.False(t, h.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_PublicTokenOnTenantHost_Returns401(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.Nil, uuid.New(), domain.RoleSuperuser, time.Minute)
	require.NoError(t, err)

	h := &contextHandler{}
	req := tenantRequest(uuid.New())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	assert.False(t, h.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RefreshToken_Returns401(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	token, err := auth.IssueRefreshToken(testJWTSecret, tenantID, uuid.New(), domain.RoleOwner, time.Hour)
	require.NoError(t, err)

	h := &contextHandler{}
	req := tenantRequest(tenantID)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	assert.False(t, h.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidTokens_Return401(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()

	expired, err := auth.IssueAccessToken(testJWTSecret, tenantID, uuid.New(), domain.RoleOwner, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := auth.IssueAccessToken("another-secret", tenantID, uuid.New(), domain.RoleOwner, time.Minute)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "Bearer not.a.jwt",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + wrongSecret,
		"no scheme":    expired,
		"empty":        "",
	}

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := &contextHandler{}
			req := tenantRequest(tenantID)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

			assert.False(t, h.called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "missing or invalid credentials")
		})
	}
}

func TestAuth_QueryToken(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, tenantID, uuid.New(), domain.RoleOwner, time.Minute)
	require.NoError(t, err)

	h := &contextHandler{}
	req := httptest.NewRequest(http.MethodGet, "/ws/admin/events?access_token="+token, http.NoBody)
	req = req.WithContext(middleware.WithTenant(req.Context(), tenantID, "acme", false))
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	require.True(t, h.called)
	assert.Equal(t, domain.RoleOwner, h.role)
}

func TestAuth_BearerSchemeCaseInsensitive(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, tenantID, uuid.New(), domain.RoleOwner, time.Minute)
	require.NoError(t, err)

	h := &contextHandler{}
	req := tenantRequest(tenantID)
	req.Header.Set("Authorization", "bEaReR "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(h).ServeHTTP(rec, req)

	assert.True(t, h.called)
}
