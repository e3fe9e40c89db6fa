// Package main provides the entry point for the icecat REST catalog service.
// The service implements the Iceberg REST Catalog API over a PostgreSQL
// backend.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/janovincze/icecat/internal/api"
	"github.com/janovincze/icecat/internal/api/middleware"
	"github.com/janovincze/icecat/internal/api/repositories"
	"github.com/janovincze/icecat/internal/api/services"
	"github.com/janovincze/icecat/internal/config"
	"github.com/janovincze/icecat/internal/store"
)

func main() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("ICECAT_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("starting icecat catalog",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"listen_addr", cfg.API.ListenAddr,
	)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Configure connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Verify database connection
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dbCancel()
	if err := db.PingContext(dbCtx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	st := store.New(db)

	// Create repositories
	namespaceRepo := repositories.NewNamespaceRepository(st)
	tableRepo := repositories.NewTableRepository(st)
	credentialRepo := repositories.NewCredentialRepository(st)
	configRepo := repositories.NewConfigRepository(st)
	metricsRepo := repositories.NewMetricsRepository(st)
	transactionRepo := repositories.NewTransactionRepository(st)

	// Create services
	cache := services.NewTableResponseCache()
	assembler := services.NewMetadataAssembler(st, tableRepo)
	configService := services.NewConfigService(st, configRepo, logger)
	credentialService := services.NewCredentialService(st, credentialRepo, logger)
	namespaceService := services.NewNamespaceService(st, namespaceRepo, logger)
	tableService := services.NewTableService(
		st, namespaceRepo, tableRepo, metricsRepo,
		assembler, credentialService, configService, cache,
		cfg.Catalog.DefaultWarehouse, logger,
	)
	commitService := services.NewCommitService(
		st, namespaceRepo, tableRepo, transactionRepo,
		assembler, cache, logger,
	)

	// Create server configuration
	serverCfg := api.ServerConfig{
		Config:            cfg,
		Logger:            logger,
		Store:             st,
		ConfigService:     configService,
		NamespaceService:  namespaceService,
		TableService:      tableService,
		CommitService:     commitService,
		CredentialService: credentialService,
		CORSConfig: middleware.CORSConfig{
			AllowedOrigins:   cfg.API.CORSOrigins,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		},
		RateLimitConfig: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.API.RateLimitRPS,
			BurstSize:         cfg.API.RateLimitBurst,
			PerClient:         true,
		},
	}

	// Create and start server
	server := api.NewServer(serverCfg)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
