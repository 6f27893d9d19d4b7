// Package server exposes the status surface: scheduler state, the committed
// graph document, prometheus metrics, and a websocket feed of cycle events.
// It is read-only; nothing here can mutate pipeline state.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flowmap/internal/scheduler"
	"flowmap/internal/store"
	"flowmap/internal/util/jsonutil"
)

// StatusSource yields the scheduler's current state.
type StatusSource interface {
	Status() scheduler.State
}

// Server serves the operations surface over HTTP.
type Server struct {
	addr   string
	status StatusSource
	graphs store.GraphStore
	hub    *Hub
	logger *log.Logger

	httpSrv *http.Server
}

func New(addr string, status StatusSource, graphs store.GraphStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:   addr,
		status: status,
		graphs: graphs,
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Publish forwards a cycle event to connected websocket clients. Wire it as
// the scheduler's Notify callback.
func (s *Server) Publish(ev scheduler.Event) {
	if s == nil {
		return
	}
	s.hub.Broadcast(ev)
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /graph", s.handleGraph)
	mux.HandleFunc("GET /events", s.hub.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutCtx)
		return ctx.Err()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.status.Status())
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.graphs.Load(r.Context())
	if err != nil {
		s.logger.Printf("server: load graph: %v", err)
		http.Error(w, "failed to load graph", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, g)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	data, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}
