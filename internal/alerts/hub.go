// Package alerts pushes expiry warnings to connected websocket clients.
package alerts

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 25 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	// clients only send control frames
	maxMessageBytes = 512
)

type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Debug(string, ...zap.Field)
}

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer
	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

func (c *client) write(messageType int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Hub tracks the open alert connections.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      Log

	// pongWait must exceed pingInterval
	pingInterval time.Duration
	pongWait     time.Duration
}

func NewHub(log Log) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:          log,
		pingInterval: pingInterval,
		pongWait:     pongWait,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends payload as JSON to every client and returns how many
// received it. Clients that cannot be written to are dropped.
func (h *Hub) Broadcast(payload any) (int, error) {
	msg, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.log.Debug("dropping alert client", zap.Error(err))
			h.unregister(c)
			continue
		}
		sent++
	}
	return sent, nil
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, done: make(chan struct{})}
	h.register(c)
	h.log.Info("alert client connected", zap.String("remote", r.RemoteAddr))

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go func() {
		t := time.NewTicker(h.pingInterval)
		defer t.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-t.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					h.unregister(c)
					return
				}
			}
		}
	}()

	// read loop ends on client close, error or a missed pong
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.unregister(c)
	}
}
