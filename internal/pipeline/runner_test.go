package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflux/dockerComposePortsDump/internal/compose"
	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

const vpnCompose = `services:
  gluetun:
    image: qmcgaw/gluetun
    ports:
      - "8080:8080"
      - "1194:1194/udp"
  qbittorrent:
    image: linuxserver/qbittorrent
    network_mode: "service:gluetun"
    environment:
      - port.mapping=8080
      - port.mapping1=9999
  plex:
    image: plexinc/pms-docker
    network_mode: host
`

type fakeCollector struct {
	containers []docker.ContainerRow
	stats      []docker.StatsRow
	ports      []docker.ContainerPort
	mappings   []docker.ContainerPort
	err        error
}

func (f *fakeCollector) ListContainers(context.Context) ([]docker.ContainerRow, error) {
	if f.err != nil {
		return nil, &docker.CollectorError{Op: "ps", Err: f.err}
	}
	return f.containers, nil
}

func (f *fakeCollector) Stats(context.Context) ([]docker.StatsRow, error) {
	if f.err != nil {
		return nil, &docker.CollectorError{Op: "stats", Err: f.err}
	}
	return f.stats, nil
}

func (f *fakeCollector) ContainerPorts(context.Context) ([]docker.ContainerPort, error) {
	if f.err != nil {
		return nil, &docker.CollectorError{Op: "inspect", Err: f.err}
	}
	return f.ports, nil
}

func (f *fakeCollector) ContainerMappings(context.Context) ([]docker.ContainerPort, error) {
	if f.err != nil {
		return nil, &docker.CollectorError{Op: "inspect", Err: f.err}
	}
	return f.mappings, nil
}

type fakeStore struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	err       error
}

func (f *fakeStore) Replace(_ context.Context, s models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, s)
	return f.err
}

type fakeVersions struct {
	version string
	err     error
}

func (f fakeVersions) LatestVersion(context.Context) (string, error) {
	return f.version, f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	composePath := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte(vpnCompose), 0644))

	cfg := &config.Config{}
	cfg.App.Version = "v1.0.0"
	cfg.Compose.Files = []string{composePath}
	cfg.Output.DataDir = filepath.Join(dir, "data")
	cfg.Output.DefaultSortOrder = "name"
	cfg.Output.HTMLFileName = "dcpd_output.html"
	cfg.Web.BackgroundColor = "#112233"
	cfg.Web.AccentColor = "#445566"
	cfg.Web.TextColor = "#ffffff"
	cfg.Web.FontName = "roboto"
	cfg.Web.FontSize = "medium"
	return cfg
}

func fixedClock() func() time.Time {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func TestRunner_Run(t *testing.T) {
	cfg := testConfig(t)
	collector := &fakeCollector{
		containers: []docker.ContainerRow{{ID: "0123456789ab", Image: "qmcgaw/gluetun", Names: "gluetun", State: "running"}},
		stats:      []docker.StatsRow{{Name: "gluetun", CPUPerc: "1.00%", MemUsage: "10MiB / 1GiB", NetIO: "1kB / 2kB", BlockIO: "0B / 0B"}},
		ports:      []docker.ContainerPort{{ContainerName: "gluetun", InternalPort: "8080", ExternalPort: "8080", Protocol: "tcp"}},
		mappings:   []docker.ContainerPort{{ContainerName: "qbittorrent", MappingName: "port.mapping", MappingValue: "8080"}},
	}
	store := &fakeStore{}
	runner := NewRunner(cfg, quietLogger(),
		WithCollector(collector),
		WithStore(store),
		WithVersionSource(fakeVersions{version: "v1.1.0"}),
		WithClock(fixedClock()),
	)

	assert.Nil(t, runner.Latest())

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, runner.Latest())
	assert.Empty(t, snap.Errors)

	// name order: gluetun (two ports, stable) then qbittorrent
	require.Len(t, snap.Records, 3)
	assert.Equal(t, ports.SortServiceName, snap.SortMode)
	assert.Equal(t, "gluetun", snap.Records[0].ServiceName)
	assert.Equal(t, "gluetun", snap.Records[1].ServiceName)
	assert.Equal(t, "qbittorrent", snap.Records[2].ServiceName)
	assert.Equal(t, ports.SourceVPNShared, snap.Records[2].Source)
	require.Len(t, snap.Result.Warnings, 1)
	assert.Contains(t, snap.Result.Warnings[0].Message, "9999")

	assert.Equal(t, output.Stats{
		TotalComposeLines:   strings.Count(vpnCompose, "\n"),
		TotalUniqueServices: 3,
		TotalPortMappings:   3,
		TotalHostNetworking: 1,
		TotalWarnings:       1,
		TotalContainerPorts: 2,
	}, snap.Counters)

	assert.Equal(t, "v1.0.0", snap.Metadata.CurrentVersion)
	assert.Equal(t, "v1.1.0", snap.Metadata.LatestVersion)
	assert.Equal(t, "2024-03-01 12:30:00", snap.Metadata.LastUpdated)
	assert.Equal(t, "Roboto", snap.Metadata.FontName)

	for _, name := range Artifacts {
		_, err := os.Stat(cfg.DataFile(name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(cfg.DataFile(FilePortsCSV))
	require.NoError(t, err)
	defer f.Close()
	records, err := output.ReadPortsCSV(f)
	require.NoError(t, err)
	assert.Equal(t, snap.Records, records)

	require.Len(t, store.snapshots, 1)
	assert.Len(t, store.snapshots[0].Services, 3)
	assert.Len(t, store.snapshots[0].ContainerPorts, 2)
	assert.Equal(t, []models.HostNetworking{{ServiceName: "plex"}}, store.snapshots[0].HostNetworking)
}

func TestRunner_CollectorFailures(t *testing.T) {
	cfg := testConfig(t)
	unavailable := errors.New("Cannot connect to the Docker daemon")
	store := &fakeStore{err: errors.New("disk full")}
	runner := NewRunner(cfg, quietLogger(),
		WithCollector(&fakeCollector{err: unavailable}),
		WithStore(store),
		WithVersionSource(fakeVersions{err: errors.New("rate limited")}),
	)

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, snap.Errors[ErrKeyPS], "Cannot connect to the Docker daemon")
	assert.Contains(t, snap.Errors[ErrKeyStats], "docker stats")
	assert.Contains(t, snap.Errors[ErrKeyContainerPorts], "docker inspect")
	assert.Equal(t, "disk full", snap.Errors[ErrKeyDatabase])
	assert.Equal(t, "rate limited", snap.Errors[ErrKeyVersion])
	assert.Equal(t, 5, snap.Counters.CollectorErrors)
	assert.Equal(t, output.NotAvailable, snap.Metadata.LatestVersion)

	// the resolved report is still written
	assert.Len(t, snap.Records, 3)
	ps, err := os.ReadFile(cfg.DataFile(FileDockerPS))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ps), "error: docker ps: Cannot connect"), string(ps))
}

func TestRunner_ConfigErrors(t *testing.T) {
	t.Run("no compose files", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Compose.Files = nil
		_, err := NewRunner(cfg, quietLogger()).Run(context.Background())
		assert.ErrorIs(t, err, config.ErrNoComposeFiles)
	})

	t.Run("missing compose file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Compose.Files = []string{filepath.Join(t.TempDir(), "missing.yml")}
		runner := NewRunner(cfg, quietLogger())
		_, err := runner.Run(context.Background())

		var cfgErr *compose.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Nil(t, runner.Latest())
	})
}

func TestRunner_WithoutCollectorSkipsDockerArtifacts(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewRunner(cfg, quietLogger()).Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataFile(FilePortsJSON))
	assert.NoError(t, err)
	_, err = os.Stat(cfg.DataFile(FileDockerPS))
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_Subscribe(t *testing.T) {
	runner := NewRunner(testConfig(t), quietLogger())
	ch, unsubscribe := runner.Subscribe()

	snap, err := runner.Run(context.Background())
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Same(t, snap, got)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestRunner_Start(t *testing.T) {
	runner := NewRunner(testConfig(t), quietLogger())
	ch, unsubscribe := runner.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not regenerate")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
