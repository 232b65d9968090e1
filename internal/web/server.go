package web

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"
)

// Server wraps the HTTP server, handlers and websocket hub.
type Server struct {
	addr     string
	handlers *Handlers
	hub      *Hub
}

// NewServer creates a server configured for the given address and
// dependencies. b may be nil (the booth routes then answer 503).
func NewServer(addr string, broadcaster *StatusBroadcaster, b Booth, cfg ClientConfig) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: sub static fs: %w", err)
	}

	handlers := NewHandlers(broadcaster, b, cfg, subFS)
	var snapshot func() any
	if b != nil {
		snapshot = func() any { return b.Snapshot() }
	}

	return &Server{
		addr:     addr,
		handlers: handlers,
		hub:      NewHub(broadcaster, snapshot),
	}, nil
}

// Handlers exposes the handlers for optional wiring (library, operator,
// cooldown).
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("POST /run", h.HandleRun)
	mux.HandleFunc("POST /cancel", h.HandleCancel)
	mux.HandleFunc("POST /reset", h.HandleReset)
	mux.HandleFunc("POST /share", h.HandleShare)
	mux.HandleFunc("GET /config", h.HandleConfig)
	mux.HandleFunc("GET /status", h.HandleStatus)
	mux.HandleFunc("GET /status/stream", h.HandleStatusStream)
	mux.HandleFunc("GET /ws", s.hub.HandleWS)
	mux.HandleFunc("GET /strip.jpg", h.HandleStrip)
	mux.HandleFunc("GET /photos/{index}", h.HandlePhoto)
	mux.HandleFunc("GET /library", RequireOperator(h.Operator, h.HandleLibrary))
	mux.HandleFunc("GET /library/{name}", RequireOperator(h.Operator, h.HandleLibraryFile))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	mux.HandleFunc("GET /{$}", h.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
// Sessions started from the web are cancelled with ctx.
func (s *Server) Run(ctx context.Context) error {
	s.handlers.runningMu.Lock()
	s.handlers.baseCtx = ctx
	s.handlers.runningMu.Unlock()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
		// SSE and websocket handlers end with the request context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
