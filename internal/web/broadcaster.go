package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/logic/booth"
)

// StatusEvent represents a single status message for SSE and websocket
// clients. Event carries the structured booth event for level "event".
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
	Event any    `json:"e,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE and
// websocket clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Broadcast sends a message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	})
}

// Publish broadcasts a booth event with level "event". It matches the
// booth publisher signature.
func (b *StatusBroadcaster) Publish(e booth.Event) {
	b.send(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: "event",
		Msg:   string(e.Type),
		Event: e,
	})
}

func (b *StatusBroadcaster) send(evt StatusEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// ClientCount returns the number of subscribers.
func (b *StatusBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// BroadcastWriter returns an io.Writer that broadcasts each debug line.
// The level is taken from the line's debug tag ([WARN], [ERROR], [LIVE],
// ...) and the logger prefix is dropped from the message.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

// logTags maps debug tags to broadcast levels.
var logTags = []struct{ tag, level string }{
	{"[ERROR]", "error"},
	{"[WARN]", "warn"},
	{"[INFO]", "info"},
	{"[LIVE]", "live"},
	{"[VERBOSE]", "verbose"},
	{"[TRACE]", "trace"},
	{"[GPIO]", "trace"},
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.b.Broadcast(splitLogLine(line))
		}
	}
	return len(p), nil
}

func splitLogLine(line string) (level, msg string) {
	for _, t := range logTags {
		if i := strings.Index(line, t.tag); i >= 0 {
			return t.level, strings.TrimSpace(line[i+len(t.tag):])
		}
	}
	return "info", line
}
