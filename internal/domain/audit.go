package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Admin log action flags.
const (
	AdminLogAddition = "addition"
	AdminLogChange   = "change"
	AdminLogDeletion = "deletion"
	AdminLogAction   = "action"
)

// AdminLogEntry records one change made through the admin for a tenant.
type AdminLogEntry struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	UserID      uuid.UUID      `json:"user_id"`
	ContentType string         `json:"content_type"`
	ObjectID    string         `json:"object_id"`
	ObjectRepr  string         `json:"object_repr"`
	Action      string         `json:"action"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type AdminLogRepository interface {
	Record(ctx context.Context, entry *AdminLogEntry) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*AdminLogEntry, error)
	ListByObject(ctx context.Context, tenantID uuid.UUID, contentType, objectID string) ([]*AdminLogEntry, error)
}
