package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyTenantID contextKey = "tenant_id"
	ContextKeySchema   contextKey = "schema"
	ContextKeyPublic   contextKey = "public"
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUserRole contextKey = "role"
)

// TenantIDFromContext returns the tenant resolved from the Host header.
// The public host carries uuid.Nil.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyTenantID).(uuid.UUID)
	return v, ok
}

func SchemaFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeySchema).(string)
	return v, ok
}

// IsPublicFromContext reports whether the request came in on the public host.
func IsPublicFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(ContextKeyPublic).(bool)
	return v
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(string)
	return v, ok
}

// WithTenant stores a host resolution in ctx.
func WithTenant(ctx context.Context, tenantID uuid.UUID, schema string, public bool) context.Context {
	ctx = context.WithValue(ctx, ContextKeyTenantID, tenantID)
	ctx = context.WithValue(ctx, ContextKeySchema, schema)
	return context.WithValue(ctx, ContextKeyPublic, public)
}

// WithUser stores the authenticated user and role in ctx.
func WithUser(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, userID)
	return context.WithValue(ctx, ContextKeyUserRole, role)
}
