// Package api provides the HTTP API server for Greenroom.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "greenroom/internal/api/v1"
	internalconfig "greenroom/internal/config"
	"greenroom/internal/db"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/services"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
	"greenroom/internal/version"
)

type Server struct {
	cfg        *internalconfig.Config
	db         db.Database
	httpServer *http.Server
	repos      *repositories.Repositories

	registry         *tools.Registry
	executor         *services.ExecutorService
	dispatcher       *services.DispatcherService
	telemetryService *telemetry.TelemetryService
	logger           *logging.Logger
	localMode        bool
}

func New(
	cfg *internalconfig.Config,
	database db.Database,
	registry *tools.Registry,
	executor *services.ExecutorService,
	dispatcher *services.DispatcherService,
	telemetryService *telemetry.TelemetryService,
	logger *logging.Logger,
) *Server {
	return &Server{
		cfg:              cfg,
		db:               database,
		repos:            repositories.New(database),
		registry:         registry,
		executor:         executor,
		dispatcher:       dispatcher,
		telemetryService: telemetryService,
		logger:           logger,
		localMode:        cfg.LocalMode,
	}
}

// Router builds the full route tree. Exposed separately from Start so API
// tests can drive it through httptest without binding a port.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", s.healthCheck)
	router.GET("/openapi.json", s.serveOpenAPI)

	v1Group := router.Group("/api/v1")
	apiHandlers := v1.NewAPIHandlers(
		s.repos,
		s.registry,
		s.executor,
		s.dispatcher,
		s.telemetryService,
		s.localMode,
	)
	apiHandlers.RegisterRoutes(v1Group)

	return router
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.APIPort),
		Handler: s.Router(),
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error: %v", err)
		}
	}()
	s.logger.Info("API server listening on :%d", s.cfg.APIPort)

	<-ctx.Done()

	s.logger.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "greenroom-api",
		"version": version.GetVersion(),
	})
}
