// Package client is a Go client for the dcpd API server
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

// API paths
const (
	APIBasePath            = "/api/v1"
	APIPathHealth          = APIBasePath + "/health"
	APIPathPorts           = APIBasePath + "/ports"
	APIPathPortsCSV        = APIBasePath + "/ports.csv"
	APIPathHostNetworking  = APIBasePath + "/host-networking"
	APIPathWarnings        = APIBasePath + "/warnings"
	APIPathMetadata        = APIBasePath + "/metadata"
	APIPathTables          = APIBasePath + "/tables"
	APIPathRefresh         = APIBasePath + "/refresh"
	APIPathExport          = APIBasePath + "/export"
	APIPathContainers      = APIBasePath + "/containers"
	APIPathContainerStats  = APIPathContainers + "/stats"
	APIPathCurrentVersion  = "/api/proxy/version/current-version"
	APIPathLatestVersion   = "/api/proxy/version/latest-version"
	APIPathLegacyHealth    = "/api/system/health"
	APIPathLegacyDataTable = "/api/data/fetch_table"
)

// Common errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrServerError        = errors.New("server error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrTimeout            = errors.New("request timeout")
	ErrConnectionFailed   = errors.New("connection failed")
)

// ClientOption represents a functional option for configuring the client
type ClientOption func(*ClientConfig) error

// ClientConfig represents the configuration for the client
type ClientConfig struct {
	BaseURL               string
	APIKey                string
	Timeout               time.Duration
	MaxRetries            int
	RetryDelay            time.Duration
	UserAgent             string
	HTTPClient            *http.Client
	Headers               map[string]string
	TLSInsecureSkipVerify bool
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:5000",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		UserAgent:  "dcpd-client/1.0",
		Headers:    make(map[string]string),
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(config *ClientConfig) error {
		if baseURL == "" {
			return fmt.Errorf("base URL cannot be empty")
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
		}
		config.BaseURL = baseURL
		return nil
	}
}

// WithAPIKey sets the key sent as the apikey query parameter
func WithAPIKey(key string) ClientOption {
	return func(config *ClientConfig) error {
		config.APIKey = key
		return nil
	}
}

// WithTimeout sets the timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		config.Timeout = timeout
		return nil
	}
}

// WithRetryOptions sets the retry options
func WithRetryOptions(maxRetries int, retryDelay time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if maxRetries < 0 {
			return fmt.Errorf("max retries must be non-negative")
		}
		if retryDelay < 0 {
			return fmt.Errorf("retry delay must be non-negative")
		}
		config.MaxRetries = maxRetries
		config.RetryDelay = retryDelay
		return nil
	}
}

// WithUserAgent sets the user agent
func WithUserAgent(userAgent string) ClientOption {
	return func(config *ClientConfig) error {
		if userAgent == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		config.UserAgent = userAgent
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(config *ClientConfig) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		config.HTTPClient = client
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

// WithTLSInsecureSkipVerify sets the TLS insecure skip verify option
func WithTLSInsecureSkipVerify(skip bool) ClientOption {
	return func(config *ClientConfig) error {
		config.TLSInsecureSkipVerify = skip
		return nil
	}
}

// APIClient talks to a running dcpd server
type APIClient struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(opts ...ClientOption) (*APIClient, error) {
	config := DefaultClientConfig()

	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, fmt.Errorf("option application failed: %w", err)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: config.TLSInsecureSkipVerify},
			},
		}
	}

	return &APIClient{config: config, httpClient: httpClient}, nil
}

// buildURL joins the base URL, path and query, adding the API key
func (c *APIClient) buildURL(path string, query url.Values) string {
	baseURL := strings.TrimSuffix(c.config.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if c.config.APIKey != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("apikey", c.config.APIKey)
	}
	if len(query) == 0 {
		return baseURL + path
	}
	return baseURL + path + "?" + query.Encode()
}

// newRequest creates a new HTTP request
func (c *APIClient) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrForbidden
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusServiceUnavailable:
		return ErrServiceUnavailable
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	default:
		return ErrServerError
	}
}

// checkResponse turns a non-2xx response into an error. The body is read but
// not closed.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	baseErr := statusError(resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", baseErr, err)
	}

	var errorResp models.ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		if errorResp.Error.Code != "" {
			return fmt.Errorf("%w: API error (%s): %s", baseErr, errorResp.Error.Code, errorResp.Error.Message)
		}
		return fmt.Errorf("%w: %s", baseErr, errorResp.Error.Message)
	}

	// the legacy endpoints answer {"error": "..."}
	var legacy models.LegacyErrorResponse
	if err := json.Unmarshal(body, &legacy); err == nil && legacy.Error != "" {
		return fmt.Errorf("%w: %s", baseErr, legacy.Error)
	}

	snippet := string(body)
	if len(snippet) > 100 {
		snippet = snippet[:100] + "..."
	}
	return fmt.Errorf("%w: status %d (body: %s)", baseErr, resp.StatusCode, snippet)
}

// handleResponse checks the status and decodes the JSON body into out. Bodies
// wrapped in the success envelope are unwrapped.
func (c *APIClient) handleResponse(resp *http.Response, out interface{}) error {
	if err := checkResponse(resp); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Success {
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Do sends an HTTP request, retrying timeouts and 5xx answers
func (c *APIClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var reqBodyBytes []byte
	if req.Body != nil {
		var err error
		reqBodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body for retry: %w", err)
		}
		req.Body.Close()
	}

	var resp *http.Response
	for retry := 0; ; retry++ {
		if reqBodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
		}

		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) && urlErr.Timeout() {
				if retry < c.config.MaxRetries && sleep(ctx, c.config.RetryDelay) {
					continue
				}
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}

		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusServiceUnavailable && retry < c.config.MaxRetries {
			resp.Body.Close()
			if sleep(ctx, c.config.RetryDelay) {
				continue
			}
			return nil, ctx.Err()
		}
		return resp, nil
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// doRequest is a helper function to make requests and handle responses
func (c *APIClient) doRequest(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, out)
}

// download copies a non-JSON response body into w
func (c *APIClient) download(ctx context.Context, method, path string, query url.Values, w io.Writer) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return resp, err
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return resp, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, nil
}

// Health checks the API health
func (c *APIClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := c.doRequest(ctx, http.MethodGet, APIPathHealth, nil, nil, &result)
	return result, err
}
