package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types published on the tenant channel.
const (
	EventTenantCreated = "tenant.created"
	EventTenantDeleted = "tenant.deleted"
	EventDomainAdded   = "domain.added"
	EventDomainRemoved = "domain.removed"
	EventAdminLog      = "admin.log"
)

// Event is the envelope published to subscribers of a tenant.
type Event struct {
	Type     string    `json:"type"`
	TenantID uuid.UUID `json:"tenant_id"`
	Data     any       `json:"data,omitempty"`
	At       time.Time `json:"at"`
}

func NewEvent(typ string, tenantID uuid.UUID, data any) Event {
	return Event{Type: typ, TenantID: tenantID, Data: data, At: time.Now().UTC()}
}
