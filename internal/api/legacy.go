package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threatflux/dockerComposePortsDump/internal/database/repositories"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

// Endpoint names accepted by the proxy routes
const (
	proxyCurrentVersion = "current-version"
	proxyLatestVersion  = "latest-version"
	proxyFetchTable     = "fetch_table"
)

func legacyError(c *gin.Context, status int, message string) {
	c.JSON(status, models.LegacyErrorResponse{Error: message})
}

// legacyHealth godoc
// @Summary Dashboard health check
// @Tags Dashboard
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.HealthResponse
// @Failure 403 {object} models.LegacyErrorResponse "Invalid or missing API key"
// @Router /api/system/health [get]
func (s *Server) legacyHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "Healthy", Code: http.StatusOK})
}

// legacyCurrentVersion godoc
// @Summary Running version
// @Tags Dashboard
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.VersionResponse
// @Router /api/system/current_version [get]
func (s *Server) legacyCurrentVersion(c *gin.Context) {
	c.JSON(http.StatusOK, models.VersionResponse{Version: s.config.App.Version, Code: http.StatusOK})
}

// legacyLatestVersion godoc
// @Summary Latest released version
// @Description Returns the tag of the latest GitHub release. The answer is cached for a day.
// @Tags Dashboard
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.VersionResponse
// @Failure 500 {object} models.LegacyErrorResponse "Release lookup failed"
// @Router /api/system/latest-version [get]
func (s *Server) legacyLatestVersion(c *gin.Context) {
	version, err := s.versions.LatestVersion(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Warn("Latest version lookup failed")
		legacyError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, models.VersionResponse{Version: version, Code: http.StatusOK})
}

// proxyVersion godoc
// @Summary Version lookup for the dashboard
// @Description Serves current-version and latest-version without an API key.
// @Tags Dashboard
// @Produce json
// @Param endpoint path string true "current-version or latest-version"
// @Success 200 {object} models.VersionResponse
// @Failure 400 {object} models.LegacyErrorResponse "Invalid version endpoint"
// @Router /api/proxy/version/{endpoint} [get]
func (s *Server) proxyVersion(c *gin.Context) {
	switch c.Param("endpoint") {
	case proxyCurrentVersion:
		s.legacyCurrentVersion(c)
	case proxyLatestVersion:
		s.legacyLatestVersion(c)
	default:
		legacyError(c, http.StatusBadRequest, "Invalid version endpoint")
	}
}

// proxyDatabase godoc
// @Summary Table rows for the dashboard
// @Description Serves fetch_table without an API key.
// @Tags Dashboard
// @Produce json
// @Param endpoint path string true "fetch_table"
// @Param table path string true "container_ports, host_networking, port_mappings or service_info"
// @Success 200 {object} models.LegacyTableResponse
// @Failure 400 {object} models.LegacyErrorResponse "Unsupported operation or table"
// @Router /api/proxy/database/{endpoint}/{table} [get]
func (s *Server) proxyDatabase(c *gin.Context) {
	if c.Param("endpoint") != proxyFetchTable {
		legacyError(c, http.StatusBadRequest, "Unsupported database operation")
		return
	}
	s.legacyFetchTable(c)
}

// legacyFetchTable godoc
// @Summary Table rows
// @Tags Dashboard
// @Produce json
// @Param table path string true "container_ports, host_networking, port_mappings or service_info"
// @Param apikey query string true "API key"
// @Success 200 {object} models.LegacyTableResponse
// @Failure 400 {object} models.LegacyErrorResponse "Invalid table name provided"
// @Failure 500 {object} models.LegacyErrorResponse "Database error"
// @Router /api/data/fetch_table/{table} [get]
func (s *Server) legacyFetchTable(c *gin.Context) {
	if s.tables == nil {
		legacyError(c, http.StatusServiceUnavailable, "Database not configured")
		return
	}
	rows, err := s.tables.FetchTable(c.Request.Context(), c.Param("table"))
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotAllowed) {
			legacyError(c, http.StatusBadRequest, "Invalid table name provided")
			return
		}
		s.logger.WithError(err).WithField("table", c.Param("table")).Error("Failed to fetch table")
		legacyError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, models.LegacyTableResponse{Data: rows, Code: http.StatusOK})
}
