package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/threatflux/dockerComposePortsDump/docs" // swagger docs
	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	router := s.router

	// Routes of the original dashboard, kept with their response shapes
	legacy := router.Group("/api")
	{
		legacy.GET("/system/health", s.legacyHealth)
		legacy.GET("/system/current_version", s.legacyCurrentVersion)
		legacy.GET("/system/latest-version", s.legacyLatestVersion)
		legacy.GET("/proxy/version/:endpoint", s.proxyVersion)
		legacy.GET("/proxy/database/:endpoint/:table", s.proxyDatabase)
		legacy.GET("/data/fetch_table/:table", s.legacyFetchTable)
	}

	apiV1 := router.Group("/api/v1")
	apiV1.GET("/health", s.healthCheck)
	apiV1.HEAD("/health", s.healthCheck)

	apiV1.GET("/ports", s.listPorts)
	apiV1.GET("/ports.csv", s.portsCSV)
	apiV1.GET("/host-networking", s.hostNetworking)
	apiV1.GET("/warnings", s.listWarnings)
	apiV1.GET("/metadata", s.metadata)
	apiV1.GET("/tables/:table", s.fetchTable)
	apiV1.GET("/events", s.events)
	apiV1.POST("/refresh", s.refresh)
	apiV1.GET("/export", s.export)

	containers := apiV1.Group("/containers")
	{
		containers.GET("", s.listContainers)
		containers.GET("/stats", s.containerStats)
		containers.GET("/:id/inspect", s.inspectContainer)
		containers.GET("/:id/logs", s.containerLogs)
		containers.GET("/:id/logs/ws", s.followContainerLogs)
	}

	// API documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
		ginSwagger.DocExpansion("list"),
		ginSwagger.DeepLinking(true),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	// Dashboard
	publicDir := s.config.Web.PublicDir
	if publicDir == "" {
		publicDir = "./public"
	}
	router.StaticFile("/", filepath.Join(publicDir, "index.html"))
	router.Static("/static", filepath.Join(publicDir, "static"))

	router.NoRoute(s.handleNotFound)
	s.logger.Debug("API routes registered")
}

// healthCheck handles the health check endpoint
// @Summary      Health Check
// @Description  Reports the server version and the age of the current snapshot.
// @Tags         System
// @Produce      json
// @Param        apikey  query     string  true  "API key"
// @Success      200  {object}  models.SuccessResponse  "Server status information"
// @Router       /api/v1/health [get]
// @Router       /api/v1/health [head]
func (s *Server) healthCheck(c *gin.Context) {
	status := gin.H{
		"status":  "ok",
		"time":    time.Now(),
		"version": s.config.App.Version,
		"env":     s.config.Server.Mode,
		"apiV1":   "/api/v1",
		"docs":    "/swagger/index.html",
	}
	if snap := s.runner.Latest(); snap != nil {
		status["generated"] = snap.Generated
		status["records"] = len(snap.Records)
	}
	utils.SuccessResponse(c, status)
}

// handleNotFound answers unknown routes
func (s *Server) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.LegacyErrorResponse{Error: "Not Found"})
}
