package hub

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"railbook/pkg/envelope"
)

type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (cc *clientConn) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[HUB] send error: %v", err)
	}
}

// Hub fans booking lifecycle events out to connected admin dashboards.
// Write-only from the server side; clients just listen (ping excepted).
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*clientConn
}

func New() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*clientConn)}
}

// HandleAdminConn registers the socket and blocks on its read loop until
// the client goes away.
func (h *Hub) HandleAdminConn(c *websocket.Conn) {
	cc := &clientConn{conn: c}

	h.mu.Lock()
	h.clients[c] = cc
	h.mu.Unlock()
	log.Printf("[HUB] admin connected, total=%d", h.ClientCount())

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.Close()
		log.Printf("[HUB] admin disconnected, total=%d", h.ClientCount())
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		// The feed is one-way; only answer keepalive pings.
		if string(raw) == `{"action":"ping"}` {
			pong := envelope.New("pong", "system")
			data, _ := pong.Marshal()
			cc.send(data)
		}
	}
}

// Broadcast pushes one envelope to every connected dashboard.
func (h *Hub) Broadcast(env envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.clients))
	for _, cc := range h.clients {
		conns = append(conns, cc)
	}
	h.mu.RUnlock()

	for _, cc := range conns {
		cc.send(data)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
