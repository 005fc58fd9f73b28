// Package monitor serves the live status, command history and event stream of a running controller.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/mudra/internal/store"
)

// Config holds the monitor configuration.
type Config struct {
	// Store serves /api/history and /api/sessions. Nil disables them.
	Store *store.Store
	// Backend is reported in /api/status.
	Backend string
	Logger  *slog.Logger
}

// Event is one processed frame as published to status and websocket clients.
type Event struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"time"`
	Hand       bool      `json:"hand"`
	Raw        int       `json:"raw"`
	Stable     int       `json:"stable"`
	Transition string    `json:"transition,omitempty"`
	Command    string    `json:"command,omitempty"`
	Result     *float64  `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Status is the response of /api/status.
type Status struct {
	Backend       string     `json:"backend"`
	StartedAt     time.Time  `json:"started_at"`
	Frames        uint64     `json:"frames"`
	Hand          bool       `json:"hand"`
	Raw           int        `json:"raw"`
	Stable        int        `json:"stable"`
	Commands      int        `json:"commands"`
	LastCommand   string     `json:"last_command,omitempty"`
	LastCommandAt *time.Time `json:"last_command_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Clients       int        `json:"clients"`
}

// Server is the monitor HTTP server.
type Server struct {
	config Config
	router chi.Router
	hub    *Hub
	start  time.Time
	logger *slog.Logger

	mu     sync.RWMutex
	status Status

	httpSrv *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		hub:    NewHub(logger),
		start:  time.Now(),
		logger: logger,
	}
	s.status = Status{Backend: config.Backend, StartedAt: s.start}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/events", s.hub.ServeHTTP)

	if s.config.Store != nil {
		h := &historyHandler{store: s.config.Store}
		r.Get("/api/history", h.listEvents)
		r.Get("/api/sessions", h.listSessions)
		r.Get("/api/sessions/{id}", h.getSession)
	}

	s.router = r
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publish records ev in the status and forwards it to websocket clients.
// It never blocks on slow clients.
func (s *Server) Publish(ev Event) {
	s.mu.Lock()
	s.status.Frames++
	s.status.Hand = ev.Hand
	s.status.Raw = ev.Raw
	s.status.Stable = ev.Stable
	if ev.Command != "" {
		at := ev.Time
		s.status.Commands++
		s.status.LastCommand = ev.Command
		s.status.LastCommandAt = &at
		s.status.LastError = ev.Error
	}
	s.mu.Unlock()

	s.hub.Broadcast(ev)
}

// Status returns a copy of the current status.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Clients = s.hub.Len()
	return st
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

// Start listens on addr and serves in the background. Listen errors are
// returned immediately so a busy port fails startup.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s.httpSrv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("monitor server failed", "error", err)
		}
	}()

	s.logger.Info("monitor listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// Shutdown closes websocket clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
