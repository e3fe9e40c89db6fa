// Package api provides the HTTP server for the Iceberg REST catalog.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janovincze/icecat/internal/api/handlers"
	"github.com/janovincze/icecat/internal/api/middleware"
	"github.com/janovincze/icecat/internal/api/services"
	"github.com/janovincze/icecat/internal/config"
	"github.com/janovincze/icecat/internal/metrics"
	"github.com/janovincze/icecat/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	cfg               *config.Config
	logger            *slog.Logger
	store             *store.Store
	configService     *services.ConfigService
	namespaceService  *services.NamespaceService
	tableService      *services.TableService
	commitService     *services.CommitService
	credentialService *services.CredentialService
	httpServer        *http.Server
	router            *gin.Engine
}

// ServerConfig holds server construction options.
type ServerConfig struct {
	// Config is the application configuration.
	Config *config.Config

	// Logger is the structured logger.
	Logger *slog.Logger

	// Store is the backend store, used by health probes.
	Store *store.Store

	// ConfigService serves the catalog configuration endpoint.
	ConfigService *services.ConfigService

	// NamespaceService serves namespace CRUD.
	NamespaceService *services.NamespaceService

	// TableService serves the table lifecycle.
	TableService *services.TableService

	// CommitService serves table commits and transactions.
	CommitService *services.CommitService

	// CredentialService serves credential registration.
	CredentialService *services.CredentialService

	// CORSConfig is the CORS configuration.
	CORSConfig middleware.CORSConfig

	// RateLimitConfig is the rate limiting configuration.
	RateLimitConfig middleware.RateLimitConfig
}

// NewServer creates a new API server.
func NewServer(serverCfg ServerConfig) *Server {
	logger := serverCfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Set Gin mode based on environment
	if serverCfg.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	if serverCfg.Config.Metrics.Enabled {
		metrics.Register()
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	if serverCfg.Config.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(serverCfg.CORSConfig))
	router.Use(middleware.RateLimiter(serverCfg.RateLimitConfig))

	s := &Server{
		cfg:               serverCfg.Config,
		logger:            logger.With("component", "api-server"),
		store:             serverCfg.Store,
		configService:     serverCfg.ConfigService,
		namespaceService:  serverCfg.NamespaceService,
		tableService:      serverCfg.TableService,
		commitService:     serverCfg.CommitService,
		credentialService: serverCfg.CredentialService,
		router:            router,
	}

	s.registerRoutes()

	// The prefix rewrite wraps the engine: /{prefix}/v1/... must become
	// /v1/{prefix}/... before route matching.
	s.httpServer = &http.Server{
		Addr:         serverCfg.Config.API.ListenAddr,
		Handler:      middleware.PrefixRewrite(router),
		ReadTimeout:  serverCfg.Config.API.ReadTimeout,
		WriteTimeout: serverCfg.Config.API.WriteTimeout,
		IdleTimeout:  serverCfg.Config.API.ReadTimeout * 4,
	}

	return s
}

// registerRoutes registers all API routes.
func (s *Server) registerRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store)
	configHandler := handlers.NewConfigHandler(s.configService)
	namespaceHandler := handlers.NewNamespaceHandler(s.namespaceService)
	tableHandler := handlers.NewTableHandler(s.tableService, s.commitService)
	credentialHandler := handlers.NewCredentialHandler(s.credentialService)

	// Health endpoints (no versioning)
	s.router.GET("/health", healthHandler.GetHealth)
	s.router.GET("/health/live", healthHandler.GetLiveness)
	s.router.GET("/health/ready", healthHandler.GetReadiness)

	// Metrics endpoint
	if s.cfg.Metrics.Enabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/v1")
	{
		v1.GET("/config", configHandler.Get)

		prefixed := v1.Group("/:prefix")
		{
			prefixed.GET("/namespaces", namespaceHandler.List)
			prefixed.POST("/namespaces", namespaceHandler.Create)
			prefixed.GET("/namespaces/:namespace", namespaceHandler.Get)
			prefixed.HEAD("/namespaces/:namespace", namespaceHandler.Head)
			prefixed.DELETE("/namespaces/:namespace", namespaceHandler.Delete)
			prefixed.POST("/namespaces/:namespace/properties", namespaceHandler.UpdateProperties)

			prefixed.GET("/namespaces/:namespace/tables", tableHandler.List)
			prefixed.POST("/namespaces/:namespace/tables", tableHandler.Create)
			prefixed.GET("/namespaces/:namespace/tables/:table", tableHandler.Load)
			prefixed.POST("/namespaces/:namespace/tables/:table", tableHandler.Update)
			prefixed.HEAD("/namespaces/:namespace/tables/:table", tableHandler.Head)
			prefixed.DELETE("/namespaces/:namespace/tables/:table", tableHandler.Delete)
			prefixed.GET("/namespaces/:namespace/tables/:table/credentials", tableHandler.LoadCredentials)
			prefixed.POST("/namespaces/:namespace/tables/:table/metrics", tableHandler.ReportMetrics)

			prefixed.POST("/tables/rename", tableHandler.Rename)
			prefixed.POST("/transactions/commit", tableHandler.CommitTransaction)
			prefixed.POST("/credentials", credentialHandler.Upsert)
		}
	}
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.cfg.API.ListenAddr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}

	return s.httpServer.Shutdown(ctx)
}

// Handler returns the full request handler, prefix rewrite included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router returns the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}
