// Package server wires the extraction engine, fetcher, plugins and
// result store into a stateless HTTP service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thomasgraf-at/webcontent-api/internal/config"
	"github.com/thomasgraf-at/webcontent-api/internal/extract"
	"github.com/thomasgraf-at/webcontent-api/internal/fetch"
	"github.com/thomasgraf-at/webcontent-api/internal/logging"
	"github.com/thomasgraf-at/webcontent-api/internal/middleware"
	"github.com/thomasgraf-at/webcontent-api/internal/monitoring"
	"github.com/thomasgraf-at/webcontent-api/internal/plugins"
	"github.com/thomasgraf-at/webcontent-api/internal/sandbox"
	"github.com/thomasgraf-at/webcontent-api/internal/sitehandler"
	"github.com/thomasgraf-at/webcontent-api/internal/store"
)

// Server hosts the extraction HTTP API.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server

	engine  *extract.Engine
	pool    *sandbox.Pool
	fetcher *fetch.Fetcher
	plugins *plugins.Registry
	store   *store.Store // nil when persistence is disabled

	logger  *logging.Logger
	metrics *monitoring.Metrics
	config  *config.Config
}

// New assembles a server from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger := logging.ForLevel(cfg.Logging.Level, cfg.Logging.Development)

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = time.Duration(cfg.Sandbox.TimeoutMS) * time.Millisecond
	sandboxCfg.MaxMemoryMB = cfg.Sandbox.MaxMemoryMB
	sandboxCfg.PoolSize = cfg.Sandbox.PoolSize

	pool, err := sandbox.NewPool(sandboxCfg)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox pool: %w", err)
	}

	var engineOpts []extract.Option
	if cfg.Handlers.Path != "" {
		registry, err := sitehandler.Load(cfg.Handlers.Path)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("loading site handlers: %w", err)
		}
		engineOpts = append(engineOpts, extract.WithLookup(registry))
		logger.Info("Site handler registry loaded", zap.String("path", cfg.Handlers.Path))
	}

	var resultStore *store.Store
	if cfg.Cache.Path != "" {
		ttl, err := cfg.Cache.ParseTTL()
		if err != nil {
			pool.Close()
			return nil, err
		}
		resultStore, err = store.Open(cfg.Cache.Path, ttl)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Result store opened",
			zap.String("path", cfg.Cache.Path),
			zap.Duration("ttl", ttl),
		)
	}

	s := &Server{
		engine:  extract.NewEngine(pool, engineOpts...),
		pool:    pool,
		fetcher: fetch.New(fetch.Config{
			Timeout:   time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
			UserAgent: cfg.Fetch.UserAgent,
			RetryMax:  cfg.Fetch.RetryMax,
		}),
		plugins: plugins.NewRegistry(),
		store:   resultStore,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
		config:  cfg,
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(logger))
	s.router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		s.router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	s.router.Use(monitoring.Middleware(s.metrics))

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	api.POST("/extract", s.handleExtract)
	api.POST("/meta", s.handleMeta)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Server listening", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// Close releases the sandbox pool and result store.
func (s *Server) Close() error {
	s.pool.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
