package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// Defaults of a VersionChecker
const (
	DefaultVersionCacheTTL = 24 * time.Hour
	versionLookupsPerHour  = 10
)

var (
	// ErrNoReleaseURL is returned when app.github_repo_url is empty
	ErrNoReleaseURL = errors.New("no release URL configured")
	// ErrVersionThrottled is returned when lookups are rate limited and nothing is cached
	ErrVersionThrottled = errors.New("release lookups throttled")
	// ErrNoTagName is returned for a release without tag_name
	ErrNoTagName = errors.New("release has no tag_name")
)

var _ pipeline.VersionSource = (*VersionChecker)(nil)

// VersionChecker reads the tag of the latest GitHub release and caches it
type VersionChecker struct {
	url      string
	ttl      time.Duration
	client   utils.HTTPClientConfig
	throttle *utils.Throttle
	logger   *logrus.Logger
	now      func() time.Time

	mu      sync.Mutex
	version string
	fetched time.Time
}

// VersionOption configures a VersionChecker
type VersionOption func(*VersionChecker)

// WithVersionTTL sets how long a fetched version is served from cache
func WithVersionTTL(ttl time.Duration) VersionOption {
	return func(v *VersionChecker) { v.ttl = ttl }
}

// WithVersionHTTPClient replaces the HTTP client settings
func WithVersionHTTPClient(config utils.HTTPClientConfig) VersionOption {
	return func(v *VersionChecker) { v.client = config }
}

// WithVersionThrottle replaces the lookup throttle
func WithVersionThrottle(t *utils.Throttle) VersionOption {
	return func(v *VersionChecker) { v.throttle = t }
}

// WithVersionLogger sets the logger
func WithVersionLogger(logger *logrus.Logger) VersionOption {
	return func(v *VersionChecker) { v.logger = logger }
}

// WithVersionClock overrides time.Now
func WithVersionClock(now func() time.Time) VersionOption {
	return func(v *VersionChecker) { v.now = now }
}

// NewVersionChecker creates a checker for a GitHub "latest release" API URL
func NewVersionChecker(url string, opts ...VersionOption) *VersionChecker {
	v := &VersionChecker{
		url:      url,
		ttl:      DefaultVersionCacheTTL,
		client:   utils.DefaultHTTPClientConfig(),
		throttle: utils.NewThrottle(versionLookupsPerHour, time.Hour),
		logger:   logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type release struct {
	TagName string `json:"tag_name"`
}

// LatestVersion returns the cached tag while it is fresh, else fetches it. A failed
// or throttled fetch falls back to a stale cached tag.
func (v *VersionChecker) LatestVersion(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.version != "" && v.now().Sub(v.fetched) < v.ttl {
		return v.version, nil
	}
	if v.url == "" {
		return "", ErrNoReleaseURL
	}
	if !v.throttle.Allow() {
		if v.version != "" {
			return v.version, nil
		}
		return "", ErrVersionThrottled
	}

	version, err := v.fetch(ctx)
	if err != nil {
		if v.version != "" {
			v.logger.WithError(err).Warn("Release lookup failed, serving cached version")
			return v.version, nil
		}
		return "", err
	}

	v.version = version
	v.fetched = v.now()
	v.logger.WithField("version", version).Debug("Fetched latest release")
	return version, nil
}

func (v *VersionChecker) fetch(ctx context.Context) (string, error) {
	resp, err := utils.HTTPRequest(ctx, http.MethodGet, v.url, map[string]string{
		"Accept": "application/vnd.github+json",
	}, nil, v.client)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup returned %d: %w", resp.StatusCode, utils.ErrUnexpectedStatus)
	}

	var r release
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return "", fmt.Errorf("failed to decode release: %w", err)
	}
	if r.TagName == "" {
		return "", ErrNoTagName
	}
	return r.TagName, nil
}
