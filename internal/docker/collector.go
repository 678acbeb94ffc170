package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Environment prefixes copied from running containers into the container ports table
const (
	PortMappingEnvPrefix = "port.mapping"
	HostMappingEnvPrefix = "host.mapping"
)

// PublishedHostIP is the only host address whose bindings are reported
const PublishedHostIP = "0.0.0.0"

// CollectorError wraps any failure talking to the Docker engine
type CollectorError struct {
	Op  string
	ID  string
	Err error
}

func (e *CollectorError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("docker %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("docker %s: %v", e.Op, e.Err)
}

func (e *CollectorError) Unwrap() error {
	return e.Err
}

// ContainerRow is one line of `docker ps -a`
type ContainerRow struct {
	ID         string `json:"id"`
	Image      string `json:"image"`
	Command    string `json:"command"`
	CreatedAt  string `json:"created_at"`
	RunningFor string `json:"running_for"`
	Status     string `json:"status"`
	State      string `json:"state"`
	Names      string `json:"names"`
}

// StatsRow is one line of `docker stats --no-stream`
type StatsRow struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	CPUPerc  string  `json:"cpu_perc"`
	MemUsage string  `json:"mem_usage"`
	MemPerc  string  `json:"mem_perc"`
	NetIO    string  `json:"net_io"`
	BlockIO  string  `json:"block_io"`
	PIDs     uint64  `json:"pids"`
	CPU      float64 `json:"-"`
}

// ContainerPort is a row of the container ports table. A row carries either a
// published port (internal, external, protocol) or an environment mapping (name, value).
type ContainerPort struct {
	ContainerName string `json:"container_name"`
	InternalPort  string `json:"internal_port"`
	ExternalPort  string `json:"external_port"`
	MappingName   string `json:"mapping_name"`
	MappingValue  string `json:"mapping_value"`
	Protocol      string `json:"protocol"`
}

// LogOptions select which part of a container log to read
type LogOptions struct {
	Tail       string
	Timestamps bool
	Follow     bool
	Since      string
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithCallTimeout bounds every non-streaming engine call
func WithCallTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithStatsConcurrency sets how many containers are sampled at once
func WithStatsConcurrency(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.statsConcurrency = n
		}
	}
}

// WithClock replaces time.Now, used for the "running for" column
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.now = now
	}
}

// Collector gathers the auxiliary container views: ps, inspect, stats, logs and ports
type Collector struct {
	engines          EngineProvider
	logger           *logrus.Logger
	timeout          time.Duration
	statsConcurrency int
	now              func() time.Time
}

// NewCollector creates a collector on top of an engine provider (usually a *ClientManager)
func NewCollector(engines EngineProvider, logger *logrus.Logger, opts ...CollectorOption) *Collector {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	c := &Collector{
		engines:          engines,
		logger:           logger,
		timeout:          30 * time.Second,
		statsConcurrency: 4,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) engine(ctx context.Context, op string) (EngineAPI, error) {
	engine, err := c.engines.Engine(ctx)
	if err != nil {
		return nil, &CollectorError{Op: op, Err: err}
	}
	return engine, nil
}

// ListContainers returns every container, running or not
func (c *Collector) ListContainers(ctx context.Context) ([]ContainerRow, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	engine, err := c.engine(ctx, "ps")
	if err != nil {
		return nil, err
	}
	list, err := engine.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, &CollectorError{Op: "ps", Err: err}
	}

	rows := make([]ContainerRow, 0, len(list))
	for _, s := range list {
		created := time.Unix(s.Created, 0)
		rows = append(rows, ContainerRow{
			ID:         shortID(s.ID),
			Image:      familiarImage(s.Image),
			Command:    s.Command,
			CreatedAt:  created.Format("2006-01-02 15:04:05 -0700 MST"),
			RunningFor: units.HumanDuration(c.now().Sub(created)) + " ago",
			Status:     s.Status,
			State:      string(s.State),
			Names:      containerNames(s.Names),
		})
	}
	return rows, nil
}

// Inspect returns the engine's inspect document for one container
func (c *Collector) Inspect(ctx context.Context, id string) (container.InspectResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	engine, err := c.engine(ctx, "inspect")
	if err != nil {
		return container.InspectResponse{}, err
	}
	info, err := engine.ContainerInspect(ctx, id)
	if err != nil {
		return container.InspectResponse{}, &CollectorError{Op: "inspect", ID: id, Err: err}
	}
	return info, nil
}

// Stats samples every running container once. Samples are taken concurrently and
// returned in container list order; the first failure aborts the whole collection.
func (c *Collector) Stats(ctx context.Context) ([]StatsRow, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	engine, err := c.engine(ctx, "stats")
	if err != nil {
		return nil, err
	}
	list, err := engine.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, &CollectorError{Op: "stats", Err: err}
	}

	rows := make([]StatsRow, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.statsConcurrency)
	for i, s := range list {
		i, s := i, s
		g.Go(func() error {
			reader, err := engine.ContainerStats(gctx, s.ID, false)
			if err != nil {
				return &CollectorError{Op: "stats", ID: shortID(s.ID), Err: err}
			}
			defer reader.Body.Close()

			var sample container.StatsResponse
			if err := json.NewDecoder(reader.Body).Decode(&sample); err != nil {
				return &CollectorError{Op: "stats", ID: shortID(s.ID), Err: fmt.Errorf("decode: %w", err)}
			}
			row := NewStatsRow(&sample)
			row.ID = shortID(s.ID)
			if row.Name == "" {
				row.Name = containerNames(s.Names)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.logger.WithField("containers", len(rows)).Debug("Collected container stats")
	return rows, nil
}

// Logs copies a container's log into w. Multiplexed streams are demultiplexed so
// stdout and stderr are interleaved as plain text.
func (c *Collector) Logs(ctx context.Context, id string, opts LogOptions, w io.Writer) error {
	info, err := c.Inspect(ctx, id)
	if err != nil {
		return err
	}
	engine, err := c.engine(ctx, "logs")
	if err != nil {
		return err
	}

	tail := opts.Tail
	if tail == "" {
		tail = "all"
	}
	rc, err := engine.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: opts.Timestamps,
		Follow:     opts.Follow,
		Since:      opts.Since,
		Tail:       tail,
	})
	if err != nil {
		return &CollectorError{Op: "logs", ID: id, Err: err}
	}
	defer rc.Close()

	if info.Config != nil && info.Config.Tty {
		_, err = io.Copy(w, rc)
	} else {
		sw := &syncWriter{w: w}
		_, err = stdcopy.StdCopy(sw, sw, rc)
	}
	if err != nil && ctx.Err() == nil {
		return &CollectorError{Op: "logs", ID: id, Err: err}
	}
	return nil
}

// ContainerPorts lists the ports running containers publish on all interfaces,
// tcp and udp only
func (c *Collector) ContainerPorts(ctx context.Context) ([]ContainerPort, error) {
	infos, err := c.inspectRunning(ctx, "container ports")
	if err != nil {
		return nil, err
	}

	var out []ContainerPort
	for _, info := range infos {
		if info.NetworkSettings == nil {
			continue
		}
		name := strings.TrimPrefix(info.Name, "/")
		for _, p := range sortedPorts(info.NetworkSettings.Ports) {
			proto := strings.ToLower(p.Proto())
			if proto != "tcp" && proto != "udp" {
				continue
			}
			for _, b := range info.NetworkSettings.Ports[p] {
				if b.HostIP != PublishedHostIP {
					continue
				}
				out = append(out, ContainerPort{
					ContainerName: name,
					InternalPort:  p.Port(),
					ExternalPort:  b.HostPort,
					Protocol:      proto,
				})
			}
		}
	}
	return out, nil
}

// ContainerMappings lists the port.mapping* and host.mapping* environment variables
// of running containers
func (c *Collector) ContainerMappings(ctx context.Context) ([]ContainerPort, error) {
	infos, err := c.inspectRunning(ctx, "container mappings")
	if err != nil {
		return nil, err
	}

	var out []ContainerPort
	for _, info := range infos {
		if info.Config == nil {
			continue
		}
		name := strings.TrimPrefix(info.Name, "/")
		for _, kv := range info.Config.Env {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			if strings.HasPrefix(key, HostMappingEnvPrefix) || strings.HasPrefix(key, PortMappingEnvPrefix) {
				out = append(out, ContainerPort{ContainerName: name, MappingName: key, MappingValue: value})
			}
		}
	}
	return out, nil
}

// inspectRunning inspects every running container, sorted by name
func (c *Collector) inspectRunning(ctx context.Context, op string) ([]container.InspectResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	engine, err := c.engine(ctx, op)
	if err != nil {
		return nil, err
	}
	list, err := engine.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("status", "running")),
	})
	if err != nil {
		return nil, &CollectorError{Op: op, Err: err}
	}

	infos := make([]container.InspectResponse, 0, len(list))
	for _, s := range list {
		info, err := engine.ContainerInspect(ctx, s.ID)
		if err != nil {
			return nil, &CollectorError{Op: op, ID: shortID(s.ID), Err: err}
		}
		if info.ContainerJSONBase == nil {
			continue
		}
		infos = append(infos, info)
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func sortedPorts(pm nat.PortMap) []nat.Port {
	keys := make([]nat.Port, 0, len(pm))
	for p := range pm {
		keys = append(keys, p)
	}
	nat.Sort(keys, func(a, b nat.Port) bool {
		if a.Int() != b.Int() {
			return a.Int() < b.Int()
		}
		return a.Proto() < b.Proto()
	})
	return keys
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// familiarImage renders an image reference the way `docker ps` does
func familiarImage(image string) string {
	if strings.HasPrefix(image, "sha256:") {
		return shortID(image)
	}
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return image
	}
	return reference.FamiliarString(named)
}

func containerNames(names []string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.TrimPrefix(n, "/"))
	}
	return strings.Join(out, ",")
}

// syncWriter serializes the stdout and stderr halves of StdCopy
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
