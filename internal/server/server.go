// Package server provides a local search backend speaking the subset of the
// OpenSearch REST API that evaluation runs use.
//
// Writes are buffered per index and only become searchable after a refresh,
// the same visibility contract the real service has.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/hyoka/internal/config"
	"github.com/hyperjump/hyoka/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP server for the local backend.
type Server struct {
	config   *config.ServerConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	server   *http.Server

	mu      sync.RWMutex
	indices map[string]*index
}

// NewServer creates a server. A nil logger discards logs.
func NewServer(cfg *config.ServerConfig, logger *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		logger:   utils.OrNop(logger),
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hyoka_server_requests_total",
			Help: "Requests served by the local backend",
		}, []string{"op", "code"}),
		indices: make(map[string]*index),
	}
	s.registry.MustRegister(s.requests)
	return s
}

// Registry returns the registry served on /metrics, so callers can add collectors.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Post("/_bulk", s.handleBulk)
	r.Head("/{index}", s.handleIndexExists)
	r.Put("/{index}", s.handleCreateIndex)
	r.Delete("/{index}", s.handleDeleteIndex)
	r.Post("/{index}/_bulk", s.handleBulk)
	r.Post("/{index}/_refresh", s.handleRefresh)
	r.Post("/{index}/_search", s.handleSearch)
	r.Get("/{index}/_search", s.handleSearch)
	return r
}

// Start starts the HTTP server on the configured address and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve serves on l until Stop is called. http.ErrServerClosed is not an error.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.logger.Info("Starting server", zap.String("addr", l.Addr().String()))
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server and closes every index.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, idx := range s.indices {
		_ = idx.close()
		delete(s.indices, name)
	}
	return err
}

func (s *Server) lookup(name string) (*index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indices[name]
	return idx, ok
}
