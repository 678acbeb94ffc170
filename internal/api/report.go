package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/threatflux/dockerComposePortsDump/internal/database/repositories"
	"github.com/threatflux/dockerComposePortsDump/internal/debug"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
	"github.com/threatflux/dockerComposePortsDump/internal/utils/archiver"
)

// RefreshEvent is the name of the SSE event sent after each regeneration
const RefreshEvent = "refresh"

// latest returns the current snapshot, answering 503 when there is none yet
func (s *Server) latest(c *gin.Context) (*pipeline.Snapshot, bool) {
	snap := s.runner.Latest()
	if snap == nil {
		utils.ServiceUnavailable(c, "No port report has been generated yet")
		return nil, false
	}
	return snap, true
}

// listPorts godoc
// @Summary List port records
// @Description Returns the resolved port records of the latest report, optionally re-sorted and filtered.
// @Description A numeric q matches the external or internal port, ":N" the external port only, anything else is a substring match.
// @Tags Ports
// @Produce json
// @Param apikey query string true "API key"
// @Param sort query string false "none, external or name (default: output.default_sort_order)"
// @Param q query string false "Search query" example(:8080)
// @Success 200 {object} models.SuccessResponse{data=models.PortsResponse}
// @Failure 400 {object} models.ErrorResponse "Invalid query parameters"
// @Failure 503 {object} models.ErrorResponse "No report yet"
// @Router /api/v1/ports [get]
func (s *Server) listPorts(c *gin.Context) {
	var query models.PortsQuery
	if !utils.BindQuery(c, &query) {
		return
	}
	snap, ok := s.latest(c)
	if !ok {
		return
	}

	mode := snap.SortMode
	if query.Sort != "" {
		parsed, err := ports.ParseSortMode(query.Sort)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		mode = parsed
	}

	records := ports.Filter(ports.Sort(snap.Result.Records, mode), query.Q)
	if records == nil {
		records = []ports.Record{}
	}
	utils.SuccessResponse(c, models.PortsResponse{
		Records:   records,
		Total:     len(records),
		Sort:      mode.String(),
		Query:     query.Q,
		Generated: snap.Generated,
	})
}

// portsCSV godoc
// @Summary Download the port records as CSV
// @Tags Ports
// @Produce text/csv
// @Param apikey query string true "API key"
// @Success 200 {string} string "dcpd_ports.csv"
// @Failure 503 {object} models.ErrorResponse "No report yet"
// @Router /api/v1/ports.csv [get]
func (s *Server) portsCSV(c *gin.Context) {
	snap, ok := s.latest(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := output.WritePortsCSV(&buf, snap.Records); err != nil {
		utils.InternalServerError(c, "Failed to render CSV: "+err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pipeline.FilePortsCSV))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// hostNetworking godoc
// @Summary List host-network services
// @Tags Ports
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.SuccessResponse{data=[]ports.Record}
// @Failure 503 {object} models.ErrorResponse "No report yet"
// @Router /api/v1/host-networking [get]
func (s *Server) hostNetworking(c *gin.Context) {
	snap, ok := s.latest(c)
	if !ok {
		return
	}
	records := snap.Result.HostNetwork
	if records == nil {
		records = []ports.Record{}
	}
	utils.SuccessResponse(c, records)
}

// listWarnings godoc
// @Summary List resolution warnings
// @Description Compose entries that were left out of the report.
// @Tags Ports
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.SuccessResponse{data=[]models.WarningResponse}
// @Failure 503 {object} models.ErrorResponse "No report yet"
// @Router /api/v1/warnings [get]
func (s *Server) listWarnings(c *gin.Context) {
	snap, ok := s.latest(c)
	if !ok {
		return
	}
	warnings := make([]models.WarningResponse, 0, len(snap.Result.Warnings))
	for _, w := range snap.Result.Warnings {
		warnings = append(warnings, models.WarningResponse{Service: w.Service, Entry: w.Entry, Message: w.Message})
	}
	utils.SuccessResponse(c, warnings)
}

// metadata godoc
// @Summary Dashboard styling and version metadata
// @Tags Ports
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.SuccessResponse{data=output.Metadata}
// @Failure 503 {object} models.ErrorResponse "No report yet"
// @Router /api/v1/metadata [get]
func (s *Server) metadata(c *gin.Context) {
	snap, ok := s.latest(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, snap.Metadata)
}

// fetchTable godoc
// @Summary Rows of a snapshot table
// @Tags Ports
// @Produce json
// @Param apikey query string true "API key"
// @Param table path string true "container_ports, host_networking, port_mappings or service_info"
// @Success 200 {object} models.SuccessResponse{data=models.TableResponse}
// @Failure 400 {object} models.ErrorResponse "Unknown table"
// @Failure 503 {object} models.ErrorResponse "Database not configured"
// @Router /api/v1/tables/{table} [get]
func (s *Server) fetchTable(c *gin.Context) {
	if s.tables == nil {
		utils.ServiceUnavailable(c, "Database not configured")
		return
	}
	table := c.Param("table")
	rows, err := s.tables.FetchTable(c.Request.Context(), table)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotAllowed) {
			utils.BadRequest(c, "Unknown table: "+table)
			return
		}
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.SuccessResponse(c, models.TableResponse{Table: table, Rows: rows})
}

// refresh godoc
// @Summary Regenerate the report now
// @Tags Ports
// @Produce json
// @Param apikey query string true "API key"
// @Success 200 {object} models.SuccessResponse{data=models.RefreshResponse}
// @Failure 500 {object} models.ErrorResponse "Regeneration failed"
// @Router /api/v1/refresh [post]
func (s *Server) refresh(c *gin.Context) {
	// a client that gives up must not leave a half-collected snapshot behind
	timeout := s.config.Docker.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), timeout)
	defer cancel()

	snap, err := s.runner.Run(ctx)
	if err != nil {
		utils.InternalServerError(c, "Regeneration failed: "+err.Error())
		return
	}
	utils.SuccessResponse(c, refreshResponse(snap))
}

func refreshResponse(snap *pipeline.Snapshot) models.RefreshResponse {
	return models.RefreshResponse{
		Generated: snap.Generated,
		Records:   len(snap.Records),
		Warnings:  len(snap.Result.Warnings),
		Duration:  snap.Duration.String(),
	}
}

// export godoc
// @Summary Download the data files
// @Description A gzipped tar of the data files with user names and secrets redacted. Sealed with export.password when one is set.
// @Tags Ports
// @Produce application/gzip
// @Param apikey query string true "API key"
// @Success 200 {string} string "dcpd_export.tar.gz"
// @Failure 404 {object} models.ErrorResponse "No data files yet"
// @Router /api/v1/export [get]
func (s *Server) export(c *gin.Context) {
	var buf bytes.Buffer
	if err := debug.Export(&buf, s.config); err != nil {
		if errors.Is(err, archiver.ErrEmptyArchive) {
			utils.NotFound(c, "No data files to export")
			return
		}
		s.logger.WithError(err).Error("Export failed")
		utils.InternalServerError(c, "Export failed: "+err.Error())
		return
	}

	contentType := "application/gzip"
	if s.config.Export.Password != "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", debug.ExportFileName(s.config)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// events godoc
// @Summary Regeneration events
// @Description Server-sent events; a "refresh" event carrying a RefreshResponse follows every regeneration.
// @Tags Ports
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Router /api/v1/events [get]
func (s *Server) events(c *gin.Context) {
	snapshots, unsubscribe := s.runner.Subscribe()
	defer unsubscribe()

	// the stream stays open far longer than server.write_timeout
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.WithError(err).Warn("Failed to clear the event stream write deadline")
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			data, err := json.Marshal(refreshResponse(snap))
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal refresh event")
				return true
			}
			if err := sse.Encode(w, sse.Event{
				Event: RefreshEvent,
				Id:    strconv.FormatInt(snap.Generated.UnixNano(), 10),
				Data:  string(data),
			}); err != nil {
				return false
			}
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ":keepalive\n\n")
			return err == nil
		case <-s.done:
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}
