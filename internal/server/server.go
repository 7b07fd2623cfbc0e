// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/valpere/perepys/internal"
	"github.com/valpere/perepys/internal/config"
	"github.com/valpere/perepys/internal/logging"
	"github.com/valpere/perepys/internal/metrics"
	"github.com/valpere/perepys/internal/pipeline"
)

const shutdownTimeout = 30 * time.Second

// Loader provides engines and names the engine combination for a config.
// *engine.Loader satisfies it.
type Loader interface {
	pipeline.EngineLoader
	EngineName(cfg pipeline.Config) string
}

// RunStore records completed requests. *store.Store satisfies it.
type RunStore interface {
	SaveRun(ctx context.Context, run *internal.ProcessingRun) error
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records pipeline metrics and serves them at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStore saves every successful run.
func WithStore(st RunStore) Option {
	return func(s *Server) { s.store = st }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server is the HTTP front end. Each request builds its own Coordinator;
// only the engine loader is shared.
type Server struct {
	cfg     config.ServerConfig
	pipe    config.PipelineConfig
	loader  Loader
	logger  logging.Logger
	metrics *metrics.Metrics
	store   RunStore
	version string

	sem    *semaphore.Weighted
	router *gin.Engine
	srv    *http.Server
}

// New builds the router for cfg. loader supplies the engines.
func New(cfg *config.Config, loader Loader, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg.Server,
		pipe:    cfg.Pipeline,
		loader:  loader,
		logger:  logging.NewNop(),
		version: "dev",
		sem:     semaphore.NewWeighted(cfg.Server.MaxConcurrent),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("server")

	gin.SetMode(s.cfg.Mode)
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogging(s.logger, "/health", "/metrics", "/favicon.ico"))

	r.POST("/process", s.limitBody, s.admit, s.handleProcess)
	r.GET("/domains", s.handleDomains)
	r.GET("/modes", s.handleModes)
	r.GET("/health", s.handleHealth)
	r.GET("/favicon.ico", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", logging.String("addr", s.cfg.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("stopped")
	return nil
}
