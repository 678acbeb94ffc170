package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/config"
)

// Common errors with detailed descriptions for better error handling
var (
	// ErrNilOption indicates a nil option was provided
	ErrNilOption = errors.New("nil option provided to client configuration")

	// ErrInvalidHost indicates an invalid Docker host
	ErrInvalidHost = errors.New("invalid Docker host specification")

	// ErrConnectionFailed indicates a connection failure to Docker daemon
	ErrConnectionFailed = errors.New("failed to connect to Docker daemon")

	// ErrClientClosed indicates the client has been closed
	ErrClientClosed = errors.New("Docker client manager has been closed")

	// ErrInvalidAPIVersion indicates an invalid API version
	ErrInvalidAPIVersion = errors.New("invalid Docker API version format")

	// ErrContextCancelled indicates the context was cancelled
	ErrContextCancelled = errors.New("context was cancelled while operating Docker client")
)

// EngineAPI is the subset of the Docker Engine API the collectors use.
// *client.Client satisfies it.
type EngineAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	Close() error
}

var _ EngineAPI = (*client.Client)(nil)

// EngineProvider hands out a live engine connection
type EngineProvider interface {
	Engine(ctx context.Context) (EngineAPI, error)
}

// ClientOption represents a functional option for configuring the Docker client
type ClientOption func(*ClientConfig) error

// ClientConfig represents the configuration for the Docker client
type ClientConfig struct {
	// Host is the Docker daemon socket to connect to
	Host string

	// APIVersion is the Docker API version to use; empty negotiates
	APIVersion string

	// RequestTimeout bounds each collector call
	RequestTimeout time.Duration

	// PingTimeout is the timeout for ping operations
	PingTimeout time.Duration

	// RetryCount is the number of extra connection attempts
	RetryCount int

	// RetryDelay is the delay between retries
	RetryDelay time.Duration

	// Headers are additional HTTP headers to include in requests
	Headers map[string]string

	// Logger is the logger to use
	Logger *logrus.Logger

	// dial creates an engine connection; tests replace it
	dial func(ctx context.Context, cfg ClientConfig) (EngineAPI, error)
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:           "unix:///var/run/docker.sock",
		RequestTimeout: 30 * time.Second,
		PingTimeout:    5 * time.Second,
		RetryCount:     3,
		RetryDelay:     500 * time.Millisecond,
		Headers:        make(map[string]string),
		Logger:         logrus.New(),
		dial:           dialEngine,
	}
}

// WithHost sets the Docker daemon host
func WithHost(host string) ClientOption {
	return func(config *ClientConfig) error {
		if host == "" {
			return ErrInvalidHost
		}
		if !strings.HasPrefix(host, "unix://") && !strings.HasPrefix(host, "tcp://") &&
			!strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") &&
			!strings.HasPrefix(host, "npipe://") {
			return fmt.Errorf("%w: host must start with unix://, npipe://, tcp://, http:// or https://", ErrInvalidHost)
		}
		config.Host = host
		return nil
	}
}

// WithAPIVersion sets the Docker API version
func WithAPIVersion(version string) ClientOption {
	return func(config *ClientConfig) error {
		if version == "" {
			config.APIVersion = ""
			return nil
		}
		parts := strings.Split(strings.TrimPrefix(version, "v"), ".")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("%w: version should be in format vX.Y or X.Y", ErrInvalidAPIVersion)
		}
		config.APIVersion = strings.TrimPrefix(version, "v")
		return nil
	}
}

// WithRequestTimeout sets the request timeout
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		config.RequestTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) ClientOption {
	return func(config *ClientConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		config.Logger = logger
		return nil
	}
}

// WithHeader adds an HTTP header
func WithHeader(key, value string) ClientOption {
	return func(config *ClientConfig) error {
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		if config.Headers == nil {
			config.Headers = make(map[string]string)
		}
		config.Headers[key] = value
		return nil
	}
}

// WithRetry sets retry parameters
func WithRetry(count int, delay time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if count < 0 {
			return fmt.Errorf("retry count must be non-negative")
		}
		if delay < 0 {
			return fmt.Errorf("retry delay must be non-negative")
		}
		config.RetryCount = count
		config.RetryDelay = delay
		return nil
	}
}

// ClientManager manages a single lazily created engine connection
type ClientManager struct {
	config      ClientConfig
	engine      EngineAPI
	mu          sync.RWMutex
	logger      *logrus.Logger
	closed      bool
	initialized atomic.Bool
	createCount atomic.Int64
}

var _ EngineProvider = (*ClientManager)(nil)

// NewManager creates a new Docker client manager. No connection is made until the
// first call to Engine, so a missing daemon does not stop the pipeline from starting.
func NewManager(opts ...ClientOption) (*ClientManager, error) {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("option application failed: %w", err)
		}
	}
	return &ClientManager{config: cfg, logger: cfg.Logger}, nil
}

// NewManagerFromConfig builds a manager from the docker section of the configuration
func NewManagerFromConfig(cfg *config.Config, logger *logrus.Logger) (*ClientManager, error) {
	opts := []ClientOption{
		WithAPIVersion(cfg.Docker.APIVersion),
		WithRetry(cfg.Docker.RetryCount, cfg.Docker.RetryDelay),
		WithHeader("User-Agent", cfg.App.Name+"/"+cfg.App.Version),
	}
	if cfg.Docker.Host != "" {
		opts = append(opts, WithHost(cfg.Docker.Host))
	}
	if cfg.Docker.RequestTimeout > 0 {
		opts = append(opts, WithRequestTimeout(cfg.Docker.RequestTimeout))
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return NewManager(opts...)
}

// Engine returns the managed connection, (re)creating it when missing or when the
// existing one no longer answers a ping
func (m *ClientManager) Engine(ctx context.Context) (EngineAPI, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrClientClosed
	}
	if m.engine != nil {
		pingCtx, cancel := context.WithTimeout(ctx, m.config.PingTimeout)
		_, err := m.engine.Ping(pingCtx)
		cancel()
		if err == nil {
			e := m.engine
			m.mu.RUnlock()
			return e, nil
		}
		m.logger.WithError(err).Warn("Existing Docker client failed ping, recreating")
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClientClosed
	}
	if m.engine != nil {
		m.engine.Close()
		m.engine = nil
	}

	var lastErr error
	for i := 0; i <= m.config.RetryCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}

		m.logger.Debugf("Attempting to create Docker client (attempt %d/%d)", i+1, m.config.RetryCount+1)
		engine, err := m.config.dial(ctx, m.config)
		if err == nil {
			m.engine = engine
			m.initialized.Store(true)
			m.createCount.Add(1)
			m.logger.WithField("host", m.config.Host).Debug("Docker client ready")
			return engine, nil
		}
		lastErr = err
		m.logger.Warnf("Error creating Docker client (attempt %d/%d): %v", i+1, m.config.RetryCount+1, err)

		if i < m.config.RetryCount {
			select {
			case <-time.After(m.config.RetryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w during retry delay: %w", ErrContextCancelled, ctx.Err())
			}
		}
	}

	m.initialized.Store(false)
	return nil, fmt.Errorf("failed to create Docker client after %d attempts: %w", m.config.RetryCount+1, lastErr)
}

// dialEngine creates an SDK client and verifies it with a ping
func dialEngine(ctx context.Context, cfg ClientConfig) (EngineAPI, error) {
	opts := []client.Opt{client.WithHost(cfg.Host)}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, client.WithHTTPHeaders(cfg.Headers))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}
	return cli, nil
}

// Ping checks the connectivity with the Docker daemon using the managed client
func (m *ClientManager) Ping(ctx context.Context) (types.Ping, error) {
	engine, err := m.Engine(ctx)
	if err != nil {
		return types.Ping{}, fmt.Errorf("failed to get Docker client for ping: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.config.PingTimeout)
	defer cancel()
	return engine.Ping(pingCtx)
}

// Close closes the managed Docker client and marks the manager as closed
func (m *ClientManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.initialized.Store(false)

	if m.engine == nil {
		return nil
	}
	err := m.engine.Close()
	m.engine = nil
	if err != nil {
		return fmt.Errorf("failed to close Docker client: %w", err)
	}
	m.logger.Debug("Docker client closed")
	return nil
}

// IsInitialized reports whether a connection has been established
func (m *ClientManager) IsInitialized() bool {
	return m.initialized.Load()
}

// IsClosed checks if the client manager has been closed
func (m *ClientManager) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// GetConfig returns a copy of the current client configuration
func (m *ClientManager) GetConfig() ClientConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.config
	cfg.Headers = make(map[string]string, len(m.config.Headers))
	for k, v := range m.config.Headers {
		cfg.Headers[k] = v
	}
	return cfg
}

// GetCreationCount returns the number of times a client has been created
func (m *ClientManager) GetCreationCount() int64 {
	return m.createCount.Load()
}
