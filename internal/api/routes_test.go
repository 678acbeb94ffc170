package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/utils/archiver"
)

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	w := s.do(http.MethodGet, "/api/v1/ports")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Invalid or missing API key"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/system/health?apikey=wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/proxy/version/current-version")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLegacyEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	testCases := []struct {
		target string
		status int
		body   string
	}{
		{"/api/system/health?apikey=secret", http.StatusOK, `{"status":"Healthy","code":200}`},
		{"/api/system/current_version?apikey=secret", http.StatusOK, `{"version":"v1.0.0","code":200}`},
		{"/api/system/latest-version?apikey=secret", http.StatusOK, `{"version":"v2.0.0","code":200}`},
		{"/api/proxy/version/current-version", http.StatusOK, `{"version":"v1.0.0","code":200}`},
		{"/api/proxy/version/latest-version", http.StatusOK, `{"version":"v2.0.0","code":200}`},
		{"/api/proxy/version/nightly", http.StatusBadRequest, `{"error":"Invalid version endpoint"}`},
		{"/api/proxy/database/drop_table/service_info", http.StatusBadRequest, `{"error":"Unsupported database operation"}`},
		{"/api/proxy/database/fetch_table/users", http.StatusBadRequest, `{"error":"Invalid table name provided"}`},
		{"/api/proxy/database/fetch_table/service_info", http.StatusOK, `{"data":[{"id":1,"service_name":"web"}],"code":200}`},
		{"/api/data/fetch_table/service_info?apikey=secret", http.StatusOK, `{"data":[{"id":1,"service_name":"web"}],"code":200}`},
		{"/api/data/fetch_table/sqlite_master?apikey=secret", http.StatusBadRequest, `{"error":"Invalid table name provided"}`},
		{"/no/such/route?apikey=secret", http.StatusNotFound, `{"error":"Not Found"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			w := s.do(http.MethodGet, tc.target)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestLegacyLatestVersionError(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.versions = fakeVersions{err: errors.New("github unreachable")}

	w := s.do(http.MethodGet, "/api/system/latest-version?apikey=secret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"github unreachable"}`, w.Body.String())
}

func TestLegacyFetchTable_NoDatabase(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.tables = nil

	w := s.do(http.MethodGet, "/api/data/fetch_table/service_info?apikey=secret")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	var status map[string]interface{}
	decodeEnvelope(t, s.do(http.MethodGet, "/api/v1/health?apikey=secret"), &status)
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "v1.0.0", status["version"])
	assert.EqualValues(t, 3, status["records"])
}

func serviceNames(resp models.PortsResponse) []string {
	names := make([]string, len(resp.Records))
	for i, r := range resp.Records {
		names[i] = r.ServiceName
	}
	return names
}

func TestListPorts(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	testCases := []struct {
		query    string
		expected []string
		sort     string
	}{
		{"", []string{"web", "qbittorrent", "db"}, "none"},
		{"&sort=external", []string{"web", "qbittorrent", "db"}, "external"},
		{"&sort=name", []string{"db", "qbittorrent", "web"}, "name"},
		{"&q=:8090", []string{"qbittorrent"}, "none"},
		{"&q=5432", []string{"db"}, "none"},
		{"&q=POSTGRES&sort=name", []string{"db"}, "name"},
		{"&q=nothing", []string{}, "none"},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			var resp models.PortsResponse
			decodeEnvelope(t, s.do(http.MethodGet, "/api/v1/ports?apikey=secret"+tc.query), &resp)
			assert.Equal(t, tc.expected, serviceNames(resp))
			assert.Equal(t, len(tc.expected), resp.Total)
			assert.Equal(t, tc.sort, resp.Sort)
		})
	}

	w := s.do(http.MethodGet, "/api/v1/ports?apikey=secret&sort=random")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPorts_NoSnapshot(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.runner.latest = nil

	w := s.do(http.MethodGet, "/api/v1/ports?apikey=secret")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
}

func TestPortsCSV(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	w := s.do(http.MethodGet, "/api/v1/ports.csv?apikey=secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), pipeline.FilePortsCSV)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Service Name,External Port,Internal Port,Port Mapping,Mapped App\n"))
	assert.Contains(t, w.Body.String(), "db,,5432,")
}

func TestHostNetworkingWarningsMetadata(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.runner.latest.Metadata.CurrentVersion = "v1.0.0"

	var host []map[string]interface{}
	decodeEnvelope(t, s.do(http.MethodGet, "/api/v1/host-networking?apikey=secret"), &host)
	require.Len(t, host, 1)
	assert.Equal(t, "plex", host[0]["service_name"])

	var warnings []models.WarningResponse
	decodeEnvelope(t, s.do(http.MethodGet, "/api/v1/warnings?apikey=secret"), &warnings)
	assert.Equal(t, []models.WarningResponse{{Service: "qbittorrent", Entry: "8999", Message: "port.mapping value 8999 does not match"}}, warnings)

	var meta map[string]interface{}
	decodeEnvelope(t, s.do(http.MethodGet, "/api/v1/metadata?apikey=secret"), &meta)
	assert.Equal(t, "v1.0.0", meta["current_version"])
}

func TestFetchTable(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	var table models.TableResponse
	decodeEnvelope(t, s.do(http.MethodGet, "/api/v1/tables/service_info?apikey=secret"), &table)
	assert.Equal(t, "service_info", table.Table)
	assert.Len(t, table.Rows, 1)

	w := s.do(http.MethodGet, "/api/v1/tables/users?apikey=secret")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	var resp models.RefreshResponse
	decodeEnvelope(t, s.do(http.MethodPost, "/api/v1/refresh?apikey=secret"), &resp)
	assert.Equal(t, 3, resp.Records)
	assert.Equal(t, 1, resp.Warnings)
	assert.Equal(t, "150ms", resp.Duration)
	assert.Equal(t, 1, s.runner.runCount())

	s.runner.runErr = errors.New("compose file not found")
	w := s.do(http.MethodPost, "/api/v1/refresh?apikey=secret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "compose file not found")
}

func TestRefresh_DetachedFromRequest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Docker.RequestTimeout = time.Minute
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh?apikey=secret", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, s.runner.runCount())
	runCtx := s.runner.runCtx
	require.NotNil(t, runCtx)
	deadline, ok := runCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	assert.Equal(t, []error{nil}, s.runner.runErrs)
}

func TestExport(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	w := s.do(http.MethodGet, "/api/v1/export?apikey=secret")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.DataDir, pipeline.FilePortsCSV), []byte("Service Name\nweb\n"), 0644))
	w = s.do(http.MethodGet, "/api/v1/export?apikey=secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gzip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dcpd_export.tar.gz")

	names, err := archiver.ListArchiveContents(bytes.NewReader(w.Body.Bytes()), archiver.DefaultArchiveOptions)
	require.NoError(t, err)
	assert.Equal(t, []string{pipeline.FilePortsCSV}, names)
}

func TestEvents(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	s.runner.events = make(chan *pipeline.Snapshot, 1)
	s.runner.events <- testSnapshot()
	close(s.runner.events)

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	// no API key needed for the dashboard's event stream
	resp, err := http.Get(ts.URL + "/api/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	body := strings.Join(lines, "\n")
	assert.Contains(t, body, "event:"+RefreshEvent)
	assert.Contains(t, body, `"records":3`)
}
