package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

// Hub pushes every broadcast message to websocket clients. Each connection
// has its own write lock; clients that fail a write are dropped.
type Hub struct {
	broadcaster *StatusBroadcaster
	snapshot    func() any
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewHub returns a hub fed by b. snapshot, if set, is sent on connect and
// on {"type":"snapshot_request"}.
func NewHub(b *StatusBroadcaster, snapshot func() any) *Hub {
	return &Hub{
		broadcaster: b,
		snapshot:    snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Run forwards broadcaster messages until ctx is done, then closes all
// connections.
func (h *Hub) Run(ctx context.Context) {
	ch, unsub := h.broadcaster.Subscribe()
	defer unsub()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg))
		}
	}
}

// broadcast writes payload to a copy of the client set. Writes happen
// outside h.mu; each connection's write lock serializes its own writes.
func (h *Hub) broadcast(payload []byte) {
	h.mu.Lock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, writeMu := range h.clients {
		targets[conn] = writeMu
	}
	h.mu.Unlock()

	var stale []*websocket.Conn
	for conn, writeMu := range targets {
		if err := writeMessage(conn, writeMu, websocket.TextMessage, payload); err != nil {
			stale = append(stale, conn)
		}
	}
	for _, conn := range stale {
		h.removeClient(conn)
	}
}

// HandleWS handles GET /ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writeMu := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = writeMu
	h.mu.Unlock()
	debug.Verbose("Websocket client connected (%s)", r.RemoteAddr)

	h.sendSnapshot(conn, writeMu)

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := writeMessage(conn, writeMu, websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer h.removeClient(conn)
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var request struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(payload, &request); err != nil {
				continue
			}
			if request.Type == "snapshot_request" {
				h.sendSnapshot(conn, writeMu)
			}
		}
	}()
}

func (h *Hub) sendSnapshot(conn *websocket.Conn, writeMu *sync.Mutex) {
	if h.snapshot == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"type": "snapshot", "state": h.snapshot()})
	if err != nil {
		return
	}
	_ = writeMessage(conn, writeMu, websocket.TextMessage, payload)
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func writeMessage(conn *websocket.Conn, writeMu *sync.Mutex, messageType int, payload []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, payload)
}
