// Package v1 implements the versioned HTTP API handlers.
package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"greenroom/internal/auth"
	"greenroom/internal/db/repositories"
	"greenroom/internal/services"
	"greenroom/internal/telemetry"
	"greenroom/internal/tools"
)

type APIHandlers struct {
	repos            *repositories.Repositories
	registry         *tools.Registry
	executor         *services.ExecutorService
	dispatcher       *services.DispatcherService
	telemetryService *telemetry.TelemetryService
	localMode        bool
}

func NewAPIHandlers(
	repos *repositories.Repositories,
	registry *tools.Registry,
	executor *services.ExecutorService,
	dispatcher *services.DispatcherService,
	telemetryService *telemetry.TelemetryService,
	localMode bool,
) *APIHandlers {
	return &APIHandlers{
		repos:            repos,
		registry:         registry,
		executor:         executor,
		dispatcher:       dispatcher,
		telemetryService: telemetryService,
		localMode:        localMode,
	}
}

func (h *APIHandlers) telemetryMiddleware() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if h.telemetryService != nil {
			h.telemetryService.TrackAPIRequest(
				param.Path,
				param.Method,
				param.StatusCode,
				param.Latency.Milliseconds(),
			)
		}
		return ""
	})
}

// RegisterRoutes registers all v1 API routes.
func (h *APIHandlers) RegisterRoutes(router *gin.RouterGroup) {
	router.Use(h.telemetryMiddleware())

	authMiddleware := auth.NewAuthMiddleware(h.repos, h.localMode)
	router.Use(authMiddleware.Authenticate())

	toolsGroup := router.Group("/tools")
	toolsGroup.GET("", h.listTools)
	toolsGroup.POST("/:name", h.invokeTool)

	jobsGroup := router.Group("/jobs")
	jobsGroup.GET("", h.listActiveJobs)
	jobsGroup.GET("/:id", h.getJob)

	runsGroup := router.Group("/runs")
	runsGroup.GET("", h.listToolRuns)
	runsGroup.GET("/:id", h.getToolRun)

	router.GET("/search-results/:id", h.getSearchResult)
}

// writeError maps the error taxonomy onto HTTP statuses. Unclassified
// errors never leak internals past a generic 500.
func writeError(c *gin.Context, err error) {
	var verr *tools.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             verr.Error(),
			"tool":              verr.ToolName,
			"validation_errors": verr.Fields,
		})
		return
	}

	var nfe *tools.NotFoundError
	if errors.As(err, &nfe) {
		c.JSON(http.StatusNotFound, gin.H{"error": nfe.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// callerID returns the authenticated user id or writes a 401.
func callerID(c *gin.Context) (int64, bool) {
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return userID, ok
}
