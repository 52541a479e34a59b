// Package server provides the HTTP API for the guest directory and RSVP flow.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/guestlist"
	"github.com/hyperjump/nikah/internal/metrics"
	"github.com/hyperjump/nikah/internal/ratelimit"
	"github.com/hyperjump/nikah/internal/rsvp"
	"github.com/hyperjump/nikah/internal/search"
	"github.com/hyperjump/nikah/internal/storage"
	"github.com/hyperjump/nikah/pkg/utils"
	"go.uber.org/zap"
)

// DirectoryService is the part of the guest list loader the API exposes.
type DirectoryService interface {
	Refresh(ctx context.Context) (*guestlist.Directory, error)
	Status() guestlist.Status
}

// Server is the HTTP server for the RSVP API.
type Server struct {
	engine    *search.Engine
	rsvp      *rsvp.Handler
	directory DirectoryService
	storage   storage.Storage
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	config    *config.ServerConfig
	logger    *zap.Logger
	version   string
	server    *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithLimiter exposes the search quota on the quota and status endpoints.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithMetrics mounts the Prometheus handler on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version reported by /api/v1/status.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	handler *rsvp.Handler,
	directory DirectoryService,
	storage storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		engine:    engine,
		rsvp:      handler,
		directory: directory,
		storage:   storage,
		config:    cfg,
		logger:    utils.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.clientIdentity)
		r.Post("/search", s.handleSearch)
		r.Get("/search/quota", s.handleQuota)
		r.Post("/rsvp", s.handleSubmit)
		r.Get("/rsvp", s.handleListResponses)
		r.Get("/rsvp/{rowIndex}", s.handleGetResponse)
		r.Get("/status", s.handleStatus)
		r.Post("/directory/refresh", s.handleRefresh)
	})
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type clientIDKey struct{}

// clientIdentity resolves the rate-limit identity: the configured header, else the client IP.
func (s *Server) clientIdentity(next http.Handler) http.Handler {
	header := s.config.ClientIDHeader
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if header != "" {
			id = r.Header.Get(header)
		}
		if id == "" {
			id = remoteHost(r.RemoteAddr)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIDKey{}, id)))
	})
}

func clientID(r *http.Request) string {
	id, _ := r.Context().Value(clientIDKey{}).(string)
	return id
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
