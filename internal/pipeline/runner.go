// Package pipeline regenerates the port report: it loads the compose files, resolves the
// port records, collects the Docker views, writes the data artifacts and stores the
// database snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/threatflux/dockerComposePortsDump/internal/compose"
	"github.com/threatflux/dockerComposePortsDump/internal/config"
	"github.com/threatflux/dockerComposePortsDump/internal/docker"
	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// Collector is the subset of docker.Collector a run needs
type Collector interface {
	ListContainers(ctx context.Context) ([]docker.ContainerRow, error)
	Stats(ctx context.Context) ([]docker.StatsRow, error)
	ContainerPorts(ctx context.Context) ([]docker.ContainerPort, error)
	ContainerMappings(ctx context.Context) ([]docker.ContainerPort, error)
}

// SnapshotStore persists the rows of a run
type SnapshotStore interface {
	Replace(ctx context.Context, snapshot models.Snapshot) error
}

// VersionSource returns the latest released version
type VersionSource interface {
	LatestVersion(ctx context.Context) (string, error)
}

// Keys of Snapshot.Errors
const (
	ErrKeyPS             = "ps"
	ErrKeyStats          = "stats"
	ErrKeyContainerPorts = "container_ports"
	ErrKeyVersion        = "latest_version"
	ErrKeyDatabase       = "database"
)

// Snapshot is the outcome of one run
type Snapshot struct {
	Generated time.Time
	Duration  time.Duration
	Project   *compose.Project
	// Result holds the records in resolution order
	Result ports.Result
	// Records are Result.Records in the configured default order
	Records        []ports.Record
	SortMode       ports.SortMode
	Containers     []docker.ContainerRow
	Stats          []docker.StatsRow
	ContainerPorts []docker.ContainerPort
	Metadata       output.Metadata
	Counters       output.Stats
	// Errors maps a collector to its failure; those views render the message instead
	Errors map[string]string
}

// Option configures a Runner
type Option func(*Runner)

// WithCollector enables the Docker views
func WithCollector(c Collector) Option {
	return func(r *Runner) { r.collector = c }
}

// WithStore enables the database snapshot
func WithStore(s SnapshotStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithVersionSource enables the latest version lookup
func WithVersionSource(v VersionSource) Option {
	return func(r *Runner) { r.versions = v }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner serializes regenerations and keeps the latest snapshot
type Runner struct {
	cfg       *config.Config
	logger    *logrus.Logger
	loader    *compose.Loader
	collector Collector
	store     SnapshotStore
	versions  VersionSource
	now       func() time.Time

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *Snapshot

	subsMu sync.Mutex
	subs   map[chan *Snapshot]struct{}
}

// NewRunner creates a runner for cfg
func NewRunner(cfg *config.Config, logger *logrus.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		loader: compose.NewLoader(logger),
		now:    time.Now,
		subs:   make(map[chan *Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Latest returns the snapshot of the last successful run, or nil
func (r *Runner) Latest() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Subscribe returns a channel receiving every new snapshot. Slow subscribers miss
// snapshots rather than block a run. The returned func unsubscribes.
func (r *Runner) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	r.subsMu.Lock()
	r.subs[ch] = struct{}{}
	r.subsMu.Unlock()

	return ch, func() {
		r.subsMu.Lock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
		r.subsMu.Unlock()
	}
}

func (r *Runner) publish(s *Snapshot) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Start runs the pipeline every interval until ctx is cancelled. Failed runs are
// logged and the previous snapshot stays current.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.WithError(err).Error("Scheduled regeneration failed")
			}
		}
	}
}

// Run regenerates everything. Loader and artifact failures are returned; collector,
// version and database failures are recorded in Snapshot.Errors.
func (r *Runner) Run(ctx context.Context) (*Snapshot, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	started := r.now()
	log := r.logger.WithField("files", len(r.cfg.Compose.Files))

	if len(r.cfg.Compose.Files) == 0 {
		return nil, config.ErrNoComposeFiles
	}

	project, err := r.loader.Load(r.cfg.Compose.Files)
	if err != nil {
		return nil, err
	}

	mode, err := ports.ParseSortMode(r.cfg.Output.DefaultSortOrder)
	if err != nil {
		log.WithError(err).Warn("Ignoring default sort order")
		mode = ports.SortNone
	}

	result := ports.Resolve(project.Services)
	for _, w := range result.Warnings {
		log.WithFields(logrus.Fields{"service": w.Service, "entry": w.Entry}).Warn(w.Message)
	}

	snap := &Snapshot{
		Generated: started,
		Project:   project,
		Result:    result,
		Records:   ports.Sort(result.Records, mode),
		SortMode:  mode,
		Errors:    make(map[string]string),
	}

	r.collect(ctx, snap)
	latestVersion := r.latestVersion(ctx, snap)

	snap.Metadata = output.NewMetadata(output.MetadataOptions{
		BackgroundColor: r.cfg.ResolveColor(r.cfg.Web.BackgroundColor),
		AccentColor:     r.cfg.ResolveColor(r.cfg.Web.AccentColor),
		TextColor:       r.cfg.ResolveColor(r.cfg.Web.TextColor),
		FontName:        r.cfg.Web.FontName,
		FontSize:        r.cfg.Web.FontSize,
		HTMLFileName:    r.cfg.Output.HTMLFileName,
		CurrentVersion:  r.cfg.App.Version,
		LatestVersion:   latestVersion,
		Now:             started,
	})
	snap.Counters = output.Stats{
		TotalComposeLines:   project.TotalLines(),
		TotalUniqueServices: len(result.Services()),
		TotalPortMappings:   len(result.Records),
		TotalHostNetworking: len(result.HostNetwork),
		TotalWarnings:       len(result.Warnings),
		TotalContainerPorts: len(snap.ContainerPorts),
	}

	if r.store != nil {
		if err := r.store.Replace(ctx, models.NewSnapshot(result, snap.ContainerPorts)); err != nil {
			log.WithError(err).Error("Failed to store snapshot")
			snap.Errors[ErrKeyDatabase] = err.Error()
		}
	}
	snap.Counters.CollectorErrors = len(snap.Errors)

	if err := r.writeArtifacts(snap); err != nil {
		return nil, fmt.Errorf("failed to write artifacts: %w", err)
	}

	snap.Duration = r.now().Sub(started)
	log.WithFields(logrus.Fields{
		"records":  len(snap.Records),
		"warnings": len(result.Warnings),
		"errors":   len(snap.Errors),
		"duration": snap.Duration,
	}).Info("Port report regenerated")

	r.mu.Lock()
	r.latest = snap
	r.mu.Unlock()
	r.publish(snap)

	return snap, nil
}

// collect runs the Docker collectors concurrently. A failing collector never cancels
// the others.
func (r *Runner) collect(ctx context.Context, snap *Snapshot) {
	if r.collector == nil {
		return
	}

	var (
		mu       sync.Mutex
		g        errgroup.Group
		portRows []docker.ContainerPort
		envRows  []docker.ContainerPort
	)
	record := func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if prev, ok := snap.Errors[key]; ok {
			snap.Errors[key] = prev + "; " + err.Error()
			return
		}
		snap.Errors[key] = err.Error()
		r.logger.WithError(err).WithField("view", key).Warn("Docker collector failed")
	}

	g.Go(func() error {
		rows, err := r.collector.ListContainers(ctx)
		if err != nil {
			record(ErrKeyPS, err)
			return nil
		}
		snap.Containers = rows
		return nil
	})
	g.Go(func() error {
		rows, err := r.collector.Stats(ctx)
		if err != nil {
			record(ErrKeyStats, err)
			return nil
		}
		snap.Stats = rows
		return nil
	})
	g.Go(func() error {
		rows, err := r.collector.ContainerPorts(ctx)
		if err != nil {
			record(ErrKeyContainerPorts, err)
			return nil
		}
		portRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := r.collector.ContainerMappings(ctx)
		if err != nil {
			record(ErrKeyContainerPorts, err)
			return nil
		}
		envRows = rows
		return nil
	})
	_ = g.Wait()

	snap.ContainerPorts = append(portRows, envRows...)
}

func (r *Runner) latestVersion(ctx context.Context, snap *Snapshot) string {
	if r.versions == nil {
		return ""
	}
	v, err := r.versions.LatestVersion(ctx)
	if err != nil {
		r.logger.WithError(err).Debug("Latest version unavailable")
		snap.Errors[ErrKeyVersion] = err.Error()
		return ""
	}
	return v
}
