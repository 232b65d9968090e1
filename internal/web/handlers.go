package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/library"
	"github.com/cjeanneret/BoothGo/internal/logic/booth"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/cjeanneret/BoothGo/internal/share"
)

// maxShareBody caps the JSON body accepted by POST /share.
const maxShareBody = 64 << 10

// Booth is the part of *booth.Booth the handlers use.
type Booth interface {
	Run(ctx context.Context) error
	Cancel()
	Reset() error
	Idle() bool
	Snapshot() booth.Snapshot
	Strip() (*image.RGBA, error)
	Original(i int) (image.Image, error)
	Share(ctx context.Context, target, recipient string) error
}

// Library is the part of *library.Library the operator pages use.
type Library interface {
	Dir() string
	List(ctx context.Context, limit int) ([]library.Entry, error)
	Get(ctx context.Context, filename string) (*library.Entry, error)
}

// ClientConfig is sent to the kiosk page by GET /config.
type ClientConfig struct {
	HeaderText       string   `json:"header_text"`
	Shots            int      `json:"shots"`
	CountdownSeconds int      `json:"countdown_seconds"`
	PreviewMs        int      `json:"preview_ms"`
	Targets          []string `json:"targets"`
}

// ShareRequest is the body of POST /share.
type ShareRequest struct {
	Target    string `json:"target"`
	Recipient string `json:"recipient"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Booth       Booth
	Library     Library
	Config      ClientConfig
	Operator    Operator
	Cooldown    time.Duration

	runningMu sync.Mutex
	running   bool
	lastRun   time.Time
	baseCtx   context.Context
	staticFS  fs.FS
	now       func() time.Time
}

// NewHandlers creates handlers with the given dependencies.
// If b is nil, POST /run will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, b Booth, cfg ClientConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Booth:       b,
		Config:      cfg,
		baseCtx:     context.Background(),
		staticFS:    staticFS,
		now:         time.Now,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) booth(w http.ResponseWriter) (Booth, bool) {
	if h.Booth == nil {
		http.Error(w, "booth not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	return h.Booth, true
}

// HandleConfig returns the kiosk settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Config)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleRun handles POST /run to start a photo session. The session runs in
// the background; progress is pushed over SSE and websocket.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, ok := h.booth(w)
	if !ok {
		return
	}

	h.runningMu.Lock()
	if h.running || !b.Idle() {
		h.runningMu.Unlock()
		http.Error(w, "session already in progress", http.StatusConflict)
		return
	}
	if h.Cooldown > 0 && !h.lastRun.IsZero() {
		if wait := h.Cooldown - h.now().Sub(h.lastRun); wait > 0 {
			h.runningMu.Unlock()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			http.Error(w, "please wait before starting a new session", http.StatusTooManyRequests)
			return
		}
	}
	h.running = true
	h.lastRun = h.now()
	ctx := h.baseCtx
	h.runningMu.Unlock()

	go func() {
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		if err := b.Run(ctx); err != nil {
			h.Broadcaster.Broadcast("error", "Session failed: "+err.Error())
			log.Printf("session failed: %v", err)
		} else {
			h.Broadcaster.Broadcast("info", "Photostrip ready")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleCancel handles POST /cancel.
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	b, ok := h.booth(w)
	if !ok {
		return
	}
	b.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// HandleReset handles POST /reset, returning the booth to the welcome screen.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	b, ok := h.booth(w)
	if !ok {
		return
	}
	if err := b.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	b, ok := h.booth(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot())
}

// HandleStrip handles GET /strip.jpg.
func (h *Handlers) HandleStrip(w http.ResponseWriter, r *http.Request) {
	b, ok := h.booth(w)
	if !ok {
		return
	}
	img, err := b.Strip()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJPEG(w, img)
}

// HandlePhoto handles GET /photos/{index}; index is 1-based like shot numbers.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	b, ok := h.booth(w)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid photo index", http.StatusBadRequest)
		return
	}
	img, err := b.Original(index - 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJPEG(w, img)
}

func writeJPEG(w http.ResponseWriter, img image.Image) {
	w.Header().Set("Content-Type", share.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	if err := strip.Encode(w, img); err != nil {
		log.Printf("encode jpeg: %v", err)
	}
}

// HandleShare handles POST /share.
func (h *Handlers) HandleShare(w http.ResponseWriter, r *http.Request) {
	b, ok := h.booth(w)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxShareBody)
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req.Target = strings.TrimSpace(req.Target)
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Target == "" || req.Recipient == "" {
		http.Error(w, "target and recipient are required", http.StatusBadRequest)
		return
	}

	err := b.Share(r.Context(), req.Target, req.Recipient)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	case errors.Is(err, booth.ErrNoStrip):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, share.ErrUnknownTarget):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, share.ErrInvalidRecipient):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, share.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, fmt.Sprintf("share failed: %v", err), http.StatusBadGateway)
	}
}

// HandleLibrary handles GET /library (operator only): the newest strips.
func (h *Handlers) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	if h.Library == nil {
		http.Error(w, "library not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.Library.List(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleLibraryFile handles GET /library/{name} (operator only).
func (h *Handlers) HandleLibraryFile(w http.ResponseWriter, r *http.Request) {
	if h.Library == nil {
		http.Error(w, "library not configured", http.StatusServiceUnavailable)
		return
	}
	name := r.PathValue("name")
	if name != filepath.Base(name) {
		http.Error(w, "invalid name", http.StatusBadRequest)
		return
	}
	e, err := h.Library.Get(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if e == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.Library.Dir(), e.Filename))
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
