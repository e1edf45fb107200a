// Package ws connects presenter frontends over WebSocket and feeds them
// ladder events. One live connection per player: a reconnect replaces
// the old socket and its notify slot.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/scevolution/ladder/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

// Client is one connected presenter.
type Client struct {
	conn *websocket.Conn
	uid  int64
	send chan []byte
}

// Hub tracks the active presenter connections and mirrors them into the
// notify registry.
type Hub struct {
	fanout  *notify.Fanout
	mu      sync.RWMutex
	clients map[int64]*Client // uid -> client
}

// NewHub wires a hub onto the fan-out registry.
func NewHub(fanout *notify.Fanout) *Hub {
	return &Hub{
		fanout:  fanout,
		clients: make(map[int64]*Client),
	}
}

// Handler upgrades GET /ws?uid=N and runs the connection until it drops.
func (h *Hub) Handler(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Query("uid"), 10, 64)
	if err != nil || uid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid uid query parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for player %d: %v", uid, err)
		return
	}

	client := &Client{conn: conn, uid: uid, send: make(chan []byte, sendBuffer)}
	h.attach(client)

	go client.writePump()
	client.readPump(h)
}

// attach installs the client, closing any previous connection for the
// same player. The notify slot always points at the newest socket.
func (h *Hub) attach(client *Client) {
	h.mu.Lock()
	if old, ok := h.clients[client.uid]; ok {
		close(old.send)
	}
	h.clients[client.uid] = client
	h.mu.Unlock()

	h.fanout.RegisterPresenter(client.uid, func(p notify.Payload) {
		data, err := json.Marshal(p)
		if err != nil {
			log.Printf("[WS] Marshal %s for player %d: %v", p.Kind, client.uid, err)
			return
		}
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] Send buffer full for player %d, dropping %s", client.uid, p.Kind)
		}
	})
	log.Printf("[WS] Player %d connected", client.uid)
}

// detach removes the client if it is still the active one for its player.
func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	current := h.clients[client.uid] == client
	if current {
		delete(h.clients, client.uid)
	}
	h.mu.Unlock()

	if current {
		h.fanout.UnregisterPresenter(client.uid)
		close(client.send)
		log.Printf("[WS] Player %d disconnected", client.uid)
	}
}

// Connected reports whether a player currently has a live socket.
func (h *Hub) Connected(uid int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[uid]
	return ok
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump consumes inbound frames until the connection dies. Presenters
// do not send commands over the socket; reads only service control
// frames and detect the close.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.detach(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for player %d: %v", c.uid, err)
			}
			return
		}
	}
}

// writePump writes queued events and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, connection is being replaced or cleaned up.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for player %d: %v", c.uid, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
