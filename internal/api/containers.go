package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/docker/docker/errdefs"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/middleware"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

const defaultLogTail = "100"

// containerSource returns the collector, answering 503 when Docker is not configured
func (s *Server) containerSource(c *gin.Context) (ContainerSource, bool) {
	if s.collector == nil {
		utils.ServiceUnavailable(c, "Docker collector not configured")
		return nil, false
	}
	return s.collector, true
}

// collectorError maps a collector failure to the error envelope
func (s *Server) collectorError(c *gin.Context, err error) {
	if errdefs.IsNotFound(err) {
		utils.NotFound(c, err.Error())
		return
	}
	s.logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Docker request failed")
	utils.BadGateway(c, err.Error(), "")
}

// containerID binds and validates the :id path parameter
func containerID(c *gin.Context) (string, bool) {
	var uri models.ContainerURI
	if !utils.BindURI(c, &uri) {
		return "", false
	}
	if err := utils.ValidateContainerRef(uri.ID); err != nil {
		utils.BadRequest(c, err.Error())
		return "", false
	}
	return uri.ID, true
}

// listContainers godoc
// @Summary List containers
// @Description Same rows as `docker ps -a`.
// @Tags Containers
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.SuccessResponse{data=[]docker.ContainerRow}
// @Failure 502 {object} models.ErrorResponse "Docker daemon error"
// @Failure 503 {object} models.ErrorResponse "Docker not configured"
// @Router /api/v1/containers [get]
func (s *Server) listContainers(c *gin.Context) {
	source, ok := s.containerSource(c)
	if !ok {
		return
	}
	rows, err := source.ListContainers(c.Request.Context())
	if err != nil {
		s.collectorError(c, err)
		return
	}
	if rows == nil {
		rows = []docker.ContainerRow{}
	}
	utils.SuccessResponse(c, rows)
}

// containerStats godoc
// @Summary Resource usage of running containers
// @Description Same rows as `docker stats --no-stream`.
// @Tags Containers
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.SuccessResponse{data=[]docker.StatsRow}
// @Failure 502 {object} models.ErrorResponse "Docker daemon error"
// @Failure 503 {object} models.ErrorResponse "Docker not configured"
// @Router /api/v1/containers/stats [get]
func (s *Server) containerStats(c *gin.Context) {
	source, ok := s.containerSource(c)
	if !ok {
		return
	}
	rows, err := source.Stats(c.Request.Context())
	if err != nil {
		s.collectorError(c, err)
		return
	}
	if rows == nil {
		rows = []docker.StatsRow{}
	}
	utils.SuccessResponse(c, rows)
}

// inspectContainer godoc
// @Summary Inspect a container
// @Tags Containers
// @Produce json
// @Param apikey query string true "API key"
// @Param id path string true "Container ID or name"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid container reference"
// @Failure 404 {object} models.ErrorResponse "Container not found"
// @Failure 502 {object} models.ErrorResponse "Docker daemon error"
// @Router /api/v1/containers/{id}/inspect [get]
func (s *Server) inspectContainer(c *gin.Context) {
	source, ok := s.containerSource(c)
	if !ok {
		return
	}
	id, ok := containerID(c)
	if !ok {
		return
	}
	info, err := source.Inspect(c.Request.Context(), id)
	if err != nil {
		s.collectorError(c, err)
		return
	}
	utils.SuccessResponse(c, info)
}

// containerLogs godoc
// @Summary Container logs
// @Description Plain text, stdout and stderr interleaved.
// @Tags Containers
// @Produce plain
// @Param apikey query string true "API key"
// @Param id path string true "Container ID or name"
// @Param tail query string false "Number of lines or all" default(100)
// @Param timestamps query bool false "Prefix lines with timestamps"
// @Param since query string false "Timestamp or relative duration" example(10m)
// @Success 200 {string} string "Log text"
// @Failure 400 {object} models.ErrorResponse "Invalid parameters"
// @Failure 404 {object} models.ErrorResponse "Container not found"
// @Router /api/v1/containers/{id}/logs [get]
func (s *Server) containerLogs(c *gin.Context) {
	source, ok := s.containerSource(c)
	if !ok {
		return
	}
	id, ok := containerID(c)
	if !ok {
		return
	}
	var query models.LogsQuery
	if !utils.BindQuery(c, &query) {
		return
	}

	var buf bytes.Buffer
	err := source.Logs(c.Request.Context(), id, docker.LogOptions{
		Tail:       query.TailValue(defaultLogTail),
		Timestamps: query.Timestamps,
		Since:      query.Since,
	}, &buf)
	if err != nil {
		s.collectorError(c, err)
		return
	}
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// wsWriter sends each write as one text message
type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// followContainerLogs godoc
// @Summary Follow container logs
// @Description Upgrades to a websocket and streams the log as text messages until either side closes.
// @Tags Containers
// @Param apikey query string true "API key"
// @Param id path string true "Container ID or name"
// @Param tail query string false "Number of lines or all" default(100)
// @Param timestamps query bool false "Prefix lines with timestamps"
// @Success 101 {string} string "Switching protocols"
// @Failure 400 {object} models.ErrorResponse "Invalid parameters"
// @Router /api/v1/containers/{id}/logs/ws [get]
func (s *Server) followContainerLogs(c *gin.Context) {
	source, ok := s.containerSource(c)
	if !ok {
		return
	}
	id, ok := containerID(c)
	if !ok {
		return
	}
	var query models.LogsQuery
	if !utils.BindQuery(c, &query) {
		return
	}
	if origin := c.GetHeader("Origin"); !middleware.OriginAllowed(s.config.Server.AllowedOrigins, origin) {
		utils.Forbidden(c, "Origin not allowed: "+origin)
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upgrade to websocket")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client sends nothing; a failed read means it went away
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := s.logger.WithField("container", id)
	log.Debug("Following container logs")
	err = source.Logs(ctx, id, docker.LogOptions{
		Tail:       query.TailValue(defaultLogTail),
		Timestamps: query.Timestamps,
		Since:      query.Since,
		Follow:     true,
	}, &wsWriter{conn: ws})
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Warn("Log stream failed")
		_ = ws.WriteMessage(websocket.TextMessage, []byte("Error: "+err.Error()))
	}
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
