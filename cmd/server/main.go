// @title Docker Compose Ports Dump API
// @version 1.0
// @description Port mappings of Docker Compose services, the Docker views of the host and the snapshot tables.

// @contact.name API Support
// @contact.url https://github.com/threatflux/dockerComposePortsDump/issues

// @license.name MIT

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in query
// @name apikey
// @description API key configured in server.api_key

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/api"
	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/database"
	"github.com/threatflux/dockerComposePortsDump/internal/database/repositories"
	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// Version information (will be set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	fmt.Printf("Docker Compose Ports Dump server %s (%s) built on %s\n", Version, Commit, BuildDate)

	logger := utils.NewLogger(os.Stderr)

	cfg, err := config.LoadConfig(config.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logFile, err := utils.ConfigureLogger(logger, utils.LogOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure logging")
	}
	defer logFile.Close()

	logger.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	}).Info("Starting Docker Compose Ports Dump server")
	for _, line := range cfg.Summary() {
		logger.Debug(line)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Server failed")
		stop()
		logFile.Close()
		os.Exit(1)
	}
}

// serve runs the API server until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	serverConfig := &api.ServerConfig{
		Config:   cfg,
		Logger:   logger,
		Versions: api.NewVersionChecker(cfg.App.GitHubRepoURL, api.WithVersionLogger(logger)),
	}
	runnerOpts := []pipeline.Option{pipeline.WithVersionSource(serverConfig.Versions)}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Snapshot database unavailable, table endpoints are disabled")
	} else {
		defer db.Close()
		tables := repositories.NewSnapshotRepository(db.DB())
		serverConfig.Tables = tables
		runnerOpts = append(runnerOpts, pipeline.WithStore(tables))
	}

	manager, err := initDockerClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Docker client unavailable, container endpoints are disabled")
	} else {
		defer manager.Close()
		collector := docker.NewCollector(manager, logger, docker.WithStatsConcurrency(cfg.Docker.StatsConcurrency))
		serverConfig.Collector = collector
		runnerOpts = append(runnerOpts, pipeline.WithCollector(collector))
	}

	serverConfig.Runner = pipeline.NewRunner(cfg, logger, runnerOpts...)

	server, err := api.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	return server.Shutdown(context.Background())
}

// initDatabase opens and migrates the snapshot database
func initDatabase(cfg *config.Config, logger *logrus.Logger) (database.Database, error) {
	logger.WithFields(logrus.Fields{
		"type": cfg.Database.Type,
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	}).Info("Initializing database connection")

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// initDockerClient creates the Docker client manager and checks the daemon answers
func initDockerClient(cfg *config.Config, logger *logrus.Logger) (*docker.ClientManager, error) {
	logger.WithField("host", cfg.Docker.Host).Info("Initializing Docker client manager")

	manager, err := docker.NewManagerFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client manager: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Docker.RequestTimeout+5*time.Second)
	defer cancel()
	if _, err := manager.Ping(ctx); err != nil {
		// the collector reconnects on demand
		logger.WithError(err).Warn("Docker daemon did not answer the initial ping")
	}
	return manager, nil
}
