package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"carmart-service/internal/auth"
	"carmart-service/internal/observability"
	"carmart-service/internal/repositories"
)

// ThreadWebSocketHandler handles thread websocket connections.
type ThreadWebSocketHandler struct {
	hub        *Hub
	threadRepo repositories.ThreadRepository
	verifier   auth.TokenVerifier
}

// NewThreadWebSocketHandler constructs a ThreadWebSocketHandler.
func NewThreadWebSocketHandler(hub *Hub, threadRepo repositories.ThreadRepository, verifier auth.TokenVerifier) *ThreadWebSocketHandler {
	return &ThreadWebSocketHandler{hub: hub, threadRepo: threadRepo, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, checks thread membership and joins the
// room. The read loop only watches for the close; clients receive messages,
// they do not send through the socket.
func (h *ThreadWebSocketHandler) Handle(c *gin.Context) {
	threadID, err := strconv.Atoi(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return
	}

	ctx, span := otel.Tracer("carmart-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	userID, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.threadRepo.IsParticipant(c.Request.Context(), threadID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for thread"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.JoinRoom(threadID, conn, info)

	observability.IncWSActive()
	h.publishLifecycle(ctx, threadID, info, "ws_connect", "")

	// The gin context is pooled and reused once Handle returns. The read
	// loop must only hold the captured ctx, never c.
	go func() {
		var closeReason string
		defer func() {
			h.hub.DropConnection(conn)
			observability.DecWSActive()
			h.publishLifecycle(ctx, threadID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.publishLifecycle(ctx, threadID, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

func (h *ThreadWebSocketHandler) publishLifecycle(ctx context.Context, threadID int, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, "ws_events.threads", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"thread_id":   threadID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if len(header) > 7 && (header[:7] == "Bearer " || header[:7] == "bearer ") {
			return header[7:]
		}
		return header
	}
	return c.Query("token")
}
