package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/config"
	"github.com/vzahanych/weather-data-fetcher/internal/fetcher"
	"github.com/vzahanych/weather-data-fetcher/internal/server/handlers"
	"github.com/vzahanych/weather-data-fetcher/internal/server/middlewares"
	"github.com/vzahanych/weather-data-fetcher/internal/store"
	"github.com/vzahanych/weather-data-fetcher/pkg/telemetry"
)

type Server struct {
	engine  *gin.Engine
	server  *http.Server
	runner  *fetcher.Runner
	store   *store.FileStore
	metrics *handlers.MetricsHandler
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewServer(cfg config.ServerConfig, runner *fetcher.Runner, files *store.FileStore, logger *zap.Logger, tele *telemetry.Telemetry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	httpMetrics := middlewares.NewHTTPMetrics()

	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.LoggingMiddleware(logger))
	engine.Use(middlewares.RecoveryMiddleware(logger, true))
	engine.Use(middlewares.TelemetryMiddleware(logger, tele))
	engine.Use(httpMetrics.Handler())

	s := &Server{
		engine:  engine,
		runner:  runner,
		store:   files,
		metrics: handlers.NewMetricsHandler(logger, httpMetrics),
		logger:  logger,
		tele:    tele,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	runner.SetMetricsRecorder(s.metrics)
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	datasets := handlers.NewDatasetHandler(s.runner, s.store, s.runner.Locations(), s.logger)
	health := handlers.NewHealthHandler(s.logger, s.store.Dir())

	// Dashboard files
	s.engine.StaticFS("/data", noDotFiles{gin.Dir(s.store.Dir(), false)})

	api := s.engine.Group("/api")
	api.GET("/locations", datasets.ListLocations)
	api.GET("/locations/:key/monthly", datasets.MonthlyAverages)
	api.GET("/locations/:key/datasets/:dataset", datasets.GetDataset)
	api.POST("/fetch", datasets.TriggerFetch)
	api.GET("/fetch/last", datasets.LastReport)

	// Health endpoints (Kubernetes friendly)
	s.engine.GET("/health", health.Health)
	s.engine.GET("/health/live", health.Liveness)
	s.engine.GET("/health/ready", health.Readiness)

	s.engine.GET("/metrics", s.metrics.ServeMetrics)
}

// noDotFiles hides dot-prefixed entries, such as in-progress temp files,
// from the static file server.
type noDotFiles struct {
	http.FileSystem
}

func (f noDotFiles) Open(name string) (http.File, error) {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return nil, fs.ErrNotExist
		}
	}
	return f.FileSystem.Open(name)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
