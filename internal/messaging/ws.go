package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// Realtime event types pushed to order subscribers.
const (
	EventMessageNew    = "message_new"
	EventMessageRead   = "message_read"
	EventOrderStatus   = "order_status"
	EventPresenceJoin  = "presence_join"
	EventPresenceLeave = "presence_leave"
)

const writeWait = 10 * time.Second

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type room struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// Hub fans realtime events out to the websocket connections watching each order.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{rooms: make(map[string]*room), log: log.Named("messaging.hub")}
}

func (h *Hub) room(orderID string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[orderID]
	if !ok && create {
		r = &room{clients: make(map[*websocket.Conn]bool)}
		h.rooms[orderID] = r
	}
	return r
}

func (h *Hub) register(orderID string, c *websocket.Conn) {
	r := h.room(orderID, true)
	r.mu.Lock()
	r.clients[c] = true
	r.mu.Unlock()
}

func (h *Hub) unregister(orderID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[orderID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.clients, c)
	empty := len(r.clients) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, orderID)
	}
}

// Subscribers reports how many connections watch the order.
func (h *Hub) Subscribers(orderID string) int {
	r := h.room(orderID, false)
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Broadcast is best-effort; connections that fail to accept a write are dropped.
func (h *Hub) Broadcast(orderID, typ string, data interface{}) {
	r := h.room(orderID, false)
	if r == nil {
		return
	}
	payload, err := json.Marshal(wsEvent{Type: typ, Data: data})
	if err != nil {
		h.log.Warn("encode realtime event", zap.String("type", typ), zap.Error(err))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Debug("drop websocket client", zap.String("order_id", orderID), zap.Error(err))
			delete(r.clients, c)
			_ = c.Close()
		}
	}
}

// Dispatch pushes committed order transitions to the order's subscribers.
func (h *Hub) Dispatch(_ context.Context, e order.Event) error {
	h.Broadcast(e.OrderID, EventOrderStatus, map[string]interface{}{
		"order_id": e.OrderID,
		"event":    e.Type,
		"from":     e.From,
		"to":       e.To,
		"at":       e.OccurredAt,
	})
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serve upgrades the request and blocks until the client goes away.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, orderID, userID string) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.register(orderID, ws)
	h.Broadcast(orderID, EventPresenceJoin, map[string]string{"user_id": userID})

	// server push only; client frames are discarded
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.unregister(orderID, ws)
			_ = ws.Close()
			h.Broadcast(orderID, EventPresenceLeave, map[string]string{"user_id": userID})
			return nil
		}
	}
}
