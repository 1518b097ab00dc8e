package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"carmart-service/internal/models"
	"carmart-service/internal/observability"
)

// Hub maintains active websocket rooms, one per thread. A connection may sit
// in many rooms at once (one per open conversation); dropping the connection
// removes it from all of them so no stale fan-out targets accumulate.
type Hub struct {
	rooms     map[int]map[*websocket.Conn]bool
	connInfo  map[int]map[*websocket.Conn]ConnInfo
	connRooms map[*websocket.Conn]map[int]bool
	mu        sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[int]map[*websocket.Conn]bool),
		connInfo:  make(map[int]map[*websocket.Conn]ConnInfo),
		connRooms: make(map[*websocket.Conn]map[int]bool),
	}
}

// JoinRoom registers a websocket connection to a thread room.
func (h *Hub) JoinRoom(threadID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[threadID]; !ok {
		h.rooms[threadID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[threadID][conn] = true
	if _, ok := h.connInfo[threadID]; !ok {
		h.connInfo[threadID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[threadID][conn] = info
	if _, ok := h.connRooms[conn]; !ok {
		h.connRooms[conn] = make(map[int]bool)
	}
	h.connRooms[conn][threadID] = true
}

// LeaveRoom removes a connection from one thread room.
func (h *Hub) LeaveRoom(threadID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(threadID, conn)
}

func (h *Hub) leaveRoomLocked(threadID int, conn *websocket.Conn) {
	if conns, ok := h.rooms[threadID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, threadID)
		}
	}
	if infos, ok := h.connInfo[threadID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, threadID)
		}
	}
	if rooms, ok := h.connRooms[conn]; ok {
		delete(rooms, threadID)
		if len(rooms) == 0 {
			delete(h.connRooms, conn)
		}
	}
}

// DropConnection removes a connection from every room it joined. Called on
// disconnect.
func (h *Hub) DropConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for threadID := range h.connRooms[conn] {
		h.leaveRoomLocked(threadID, conn)
	}
}

// BroadcastMessage sends a stored message to every connection in the thread
// room. Delivery is best effort and at most once per socket: a failed write
// closes and evicts the connection and never fails the originating request.
func (h *Hub) BroadcastMessage(threadID int, msg models.ThreadMessage) {
	event := models.ThreadEvent{Type: "message", Message: &msg}
	h.broadcast(threadID, event)
}

// BroadcastRead notifies the room that a message was marked read.
func (h *Hub) BroadcastRead(threadID int, messageID int) {
	event := models.ThreadEvent{Type: "message_read", MessageID: messageID}
	h.broadcast(threadID, event)
}

func (h *Hub) broadcast(threadID int, event models.ThreadEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[threadID]))
	for conn := range h.rooms[threadID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(threadID, conn, err)
			h.DropConnection(conn)
		}
	}
}

func (h *Hub) publishWSError(threadID int, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(threadID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"thread_id":   threadID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.threads", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(threadID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[threadID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
