// Package api serves the port report, the Docker views and the snapshot tables over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/middleware"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// SnapshotSource regenerates the report and hands out the latest snapshot
type SnapshotSource interface {
	Latest() *pipeline.Snapshot
	Run(ctx context.Context) (*pipeline.Snapshot, error)
	Start(ctx context.Context, interval time.Duration)
	Subscribe() (<-chan *pipeline.Snapshot, func())
}

// ContainerSource serves the live Docker views
type ContainerSource interface {
	ListContainers(ctx context.Context) ([]docker.ContainerRow, error)
	Stats(ctx context.Context) ([]docker.StatsRow, error)
	Inspect(ctx context.Context, id string) (container.InspectResponse, error)
	Logs(ctx context.Context, id string, opts docker.LogOptions, w io.Writer) error
}

// TableStore reads the snapshot tables
type TableStore interface {
	FetchTable(ctx context.Context, table string) ([]map[string]interface{}, error)
}

var (
	_ SnapshotSource  = (*pipeline.Runner)(nil)
	_ ContainerSource = (*docker.Collector)(nil)
)

const (
	limiterCleanupInterval = 10 * time.Minute
	// eventsKeepAlive is how often an idle event stream gets a comment line
	eventsKeepAlive = 15 * time.Second
	// defaultRefreshTimeout bounds an on-demand regeneration when docker.request_timeout is unset
	defaultRefreshTimeout = 30 * time.Second
)

// Server represents the API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	config     *config.Config
	logger     *logrus.Logger
	runner     SnapshotSource
	collector  ContainerSource
	tables     TableStore
	versions   pipeline.VersionSource
	limiter    *utils.RateLimiter
	upgrader   websocket.Upgrader
	shutdownWg sync.WaitGroup
	cancel     context.CancelFunc

	// done is closed on Shutdown so open event streams end
	done      chan struct{}
	closeDone sync.Once
	keepAlive time.Duration
}

// ServerConfig contains the configuration for the API server
type ServerConfig struct {
	Config *config.Config
	Logger *logrus.Logger
	Runner SnapshotSource
	// Collector enables the /api/v1/containers endpoints
	Collector ContainerSource
	// Tables enables the table endpoints
	Tables TableStore
	// Versions defaults to a VersionChecker for app.github_repo_url
	Versions pipeline.VersionSource
}

// NewServer creates a new API server with its routes registered
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}

	server := &Server{
		config:    cfg.Config,
		logger:    cfg.Logger,
		runner:    cfg.Runner,
		collector: cfg.Collector,
		tables:    cfg.Tables,
		versions:  cfg.Versions,
		done:      make(chan struct{}),
		keepAlive: eventsKeepAlive,
	}
	if server.versions == nil {
		server.versions = NewVersionChecker(cfg.Config.App.GitHubRepoURL, WithVersionLogger(cfg.Logger))
	}
	if cfg.Config.Server.RateLimit > 0 {
		server.limiter = utils.NewRateLimiter(cfg.Config.Server.RateLimit, cfg.Config.Server.RateBurst)
	}
	origins := cfg.Config.Server.AllowedOrigins
	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(origins, r.Header.Get("Origin"))
		},
	}

	switch server.config.Server.Mode {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())

	loggingMW := middleware.NewLoggingMiddleware(server.logger, middleware.WithSkipPaths("/api/v1/health", "/api/system/health"))
	recoveryMW := middleware.NewRecoveryMiddleware(server.logger)
	router.Use(loggingMW.Logger())
	router.Use(recoveryMW.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(origins)))
	router.Use(middleware.RateLimit(server.limiter))
	router.Use(middleware.APIKey(middleware.DefaultAPIKeyConfig(cfg.Config.Server.APIKey)))
	if cfg.Config.Server.APIKey == "" {
		server.logger.Warn("server.api_key is empty, API key check disabled")
	}

	server.router = router
	server.registerRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", server.config.Server.Host, server.config.Server.Port),
		Handler:      server.router,
		ReadTimeout:  server.config.Server.ReadTimeout,
		WriteTimeout: server.config.Server.WriteTimeout,
		IdleTimeout:  server.config.Server.IdleTimeout,
	}

	return server, nil
}

// Start listens on the configured address and starts the scheduled regeneration.
// It returns once the listener is open.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	ctx, s.cancel = context.WithCancel(ctx)

	s.shutdownWg.Add(1)
	go func() {
		defer s.shutdownWg.Done()
		s.logger.WithField("address", ln.Addr().String()).Info("Starting API server")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	s.shutdownWg.Add(1)
	go func() {
		defer s.shutdownWg.Done()
		s.refreshLoop(ctx)
	}()

	if s.limiter != nil {
		s.shutdownWg.Add(1)
		go func() {
			defer s.shutdownWg.Done()
			s.cleanupLimiters(ctx)
		}()
	}
	return nil
}

// refreshLoop generates the first snapshot, then regenerates on the refresh interval
func (s *Server) refreshLoop(ctx context.Context) {
	if s.runner.Latest() == nil {
		if _, err := s.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WithError(err).Error("Initial regeneration failed")
		}
	}
	if !s.config.Refresh.Enabled {
		return
	}
	s.runner.Start(ctx, s.config.Refresh.Interval)
}

func (s *Server) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.CleanupLimiters(limiterCleanupInterval)
		}
	}
}

// Addr returns the listening address once started, else the configured one
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Shutdown gracefully shuts down the API server and waits for the background loops
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")

	if timeout := s.config.Server.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.closeDone.Do(func() { close(s.done) })
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during server shutdown")
	}

	s.shutdownWg.Wait()
	s.logger.Info("API server shutdown complete")
	return err
}

// Router returns the Gin router instance
func (s *Server) Router() *gin.Engine {
	return s.router
}

// GetLogger returns the logger instance
func (s *Server) GetLogger() *logrus.Logger {
	return s.logger
}

// GetConfig returns the configuration
func (s *Server) GetConfig() *config.Config {
	return s.config
}
