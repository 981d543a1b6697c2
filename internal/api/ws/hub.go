package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/equisy/equisy-api/internal/server/middleware"
	redisstore "github.com/equisy/equisy-api/internal/store/redis"
)

// Subscriber delivers the payloads published to a channel until the
// returned cleanup func is called.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub streams tenant events to WebSocket clients.
type Hub struct {
	sub     Subscriber
	origins []string
}

// NewHub creates a hub. origins are the extra host patterns accepted by
// the handshake origin check.
func NewHub(sub Subscriber, origins []string) *Hub {
	return &Hub{sub: sub, origins: origins}
}

// ServeAdminEvents streams the admin log and tenant lifecycle events of
// the tenant resolved from the Host header. Each message is one JSON
// event as published.
func (h *Hub) ServeAdminEvents(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok || tenantID == uuid.Nil {
		http.Error(w, "missing tenant", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Reads are never expected; CloseRead handles pings and the close frame.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.sub.Subscribe(ctx, redisstore.TenantChannel(tenantID))
	if err != nil {
		log.Error().Err(err).Stringer("tenant_id", tenantID).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
