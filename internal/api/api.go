// Package api provides the HTTP surface for SafePath.
//
// It exposes RESTful endpoints for opening triage sessions, posting
// conversation turns, and managing the service directory. The API ties
// together the engine and store modules; the engine itself stays pure
// and the API owns persistence and per-session serialization.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SafePath-UK/SafePath/internal/engine"
	"github.com/SafePath-UK/SafePath/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// shutdownTimeout bounds graceful shutdown on Stop.
const shutdownTimeout = 10 * time.Second

// Server hosts the SafePath HTTP API.
type Server struct {
	engine *engine.Engine
	st     store.Store

	// sessionLocks serializes turns per session: two concurrent
	// messages for the same session must not interleave their
	// read-evaluate-write cycles.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex

	// webhooks holds extra routes registered by messaging channels,
	// keyed by ServeMux pattern.
	webhooks map[string]http.HandlerFunc

	httpServer *http.Server
}

// NewServer creates an API server over the given engine and store.
func NewServer(eng *engine.Engine, st store.Store) *Server {
	return &Server{
		engine:       eng,
		st:           st,
		sessionLocks: make(map[string]*sync.Mutex),
		webhooks:     make(map[string]http.HandlerFunc),
	}
}

// RegisterWebhook adds an inbound webhook route, e.g. the Twilio SMS
// callback. Must be called before Handler or Run.
func (s *Server) RegisterWebhook(pattern string, handler http.HandlerFunc) {
	s.webhooks[pattern] = handler
	slog.Info("API webhook registered", "pattern", pattern)
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("DELETE /sessions/{id}", s.deleteSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.postMessageHandler)
	mux.HandleFunc("GET /services", s.listServicesHandler)
	mux.HandleFunc("POST /services", s.addServiceHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	for pattern, handler := range s.webhooks {
		mux.HandleFunc(pattern, handler)
	}
	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("API server starting", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	slog.Info("API server stopping")
	return s.httpServer.Shutdown(ctx)
}

// lockSession acquires the per-session mutex, creating it on first use.
// The returned function releases it. Entries are never removed: a turn
// that fetched the mutex before a concurrent delete must not race a
// later turn holding a freshly minted one for the same id, so each id
// keeps a single mutex for the server's lifetime.
func (s *Server) lockSession(id string) func() {
	s.mu.Lock()
	l, ok := s.sessionLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.sessionLocks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
