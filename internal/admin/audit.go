package admin

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/domain"
	redisstore "github.com/equisy/equisy-api/internal/store/redis"
)

// Publisher sends an event payload to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Auditor records admin changes and announces them to subscribers.
// Either dependency may be nil.
type Auditor struct {
	log       domain.AdminLogRepository
	publisher Publisher
}

func NewAuditor(repo domain.AdminLogRepository, publisher Publisher) *Auditor {
	return &Auditor{log: repo, publisher: publisher}
}

// Record stores and publishes one entry. Failures are logged; the change
// being audited has already been committed.
func (a *Auditor) Record(ctx context.Context, scope Scope, ma *ModelAdmin, objectID int64, repr, action string, details map[string]any) {
	if a == nil {
		return
	}

	entry := &domain.AdminLogEntry{
		ID:          uuid.New(),
		TenantID:    scope.TenantID,
		UserID:      scope.UserID,
		ContentType: ma.ContentType,
		ObjectID:    strconv.FormatInt(objectID, 10),
		ObjectRepr:  repr,
		Action:      action,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	}

	if a.log != nil {
		if err := a.log.Record(ctx, entry); err != nil {
			log.Error().Err(err).Str("tenant", scope.TenantID.String()).Str("model", ma.Name).
				Str("action", action).Msg("record admin log entry")
		}
	}

	if a.publisher != nil {
		payload, err := json.Marshal(domain.NewEvent(domain.EventAdminLog, scope.TenantID, entry))
		if err != nil {
			log.Error().Err(err).Msg("marshal admin log event")
			return
		}
		if err = a.publisher.Publish(ctx, redisstore.TenantChannel(scope.TenantID), payload); err != nil {
			log.Warn().Err(err).Str("tenant", scope.TenantID.String()).Msg("publish admin log event")
		}
	}
}
