// Package utils holds the HTTP response envelope, the outbound HTTP client, rate
// limiting and other helpers shared by the API and the collectors
package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	// Common errors
	ErrInvalidRequest        = errors.New("invalid request")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrContentTypeNotAllowed = errors.New("content type not allowed")
	ErrUnexpectedStatus      = errors.New("unexpected status code")

	headerNameRegex  = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	headerValueRegex = regexp.MustCompile(`^[^\r\n]*$`)
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// RateLimiter hands out one token bucket per client key
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	visitor  map[string]time.Time
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		visitor:  make(map[string]time.Time),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter gets or creates a rate limiter for the given key
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.visitor[key] = time.Now()
	return limiter
}

// Allow reports whether a request for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// CleanupLimiters removes limiters not used within maxAge
func (rl *RateLimiter) CleanupLimiters(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, lastSeen := range rl.visitor {
		if time.Since(lastSeen) > maxAge {
			delete(rl.limiters, key)
			delete(rl.visitor, key)
		}
	}
}

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError represents an API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries the response timestamp and request ID
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// HTTPResponse is a wrapper for HTTP responses
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration
	KeepAlive             time.Duration
	MaxIdleConns          int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MaxResponseBodySize   int64
	AllowedContentTypes   []string
	// Client replaces the client built from the settings above
	Client *http.Client
}

// DefaultHTTPClientConfig returns the default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:               10 * time.Second,
		KeepAlive:             30 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxResponseBodySize:   1024 * 1024, // 1MB
		AllowedContentTypes:   []string{"application/json", "application/vnd.github+json"},
	}
}

// CreateHTTPClient creates an HTTP client with the given configuration
func CreateHTTPClient(config HTTPClientConfig) *http.Client {
	if config.Client != nil {
		return config.Client
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.Timeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// HTTPRequest sends an HTTP request and reads the whole (size limited) body
func HTTPRequest(ctx context.Context, method, urlString string, headers map[string]string, body io.Reader, config HTTPClientConfig) (*HTTPResponse, error) {
	if err := ValidateURL(urlString, []string{"http", "https"}); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", ErrInvalidRequest)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlString, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		if !headerNameRegex.MatchString(key) || !headerValueRegex.MatchString(value) {
			return nil, fmt.Errorf("invalid header %q: %w", key, ErrInvalidRequest)
		}
		req.Header.Set(key, value)
	}

	resp, err := CreateHTTPClient(config).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if len(config.AllowedContentTypes) > 0 {
		contentType := resp.Header.Get("Content-Type")
		if !IsValidContentType(contentType, config.AllowedContentTypes) {
			return nil, fmt.Errorf("content type %s not allowed: %w", contentType, ErrContentTypeNotAllowed)
		}
	}

	var bodyReader io.Reader = resp.Body
	if config.MaxResponseBodySize > 0 {
		bodyReader = io.LimitReader(resp.Body, config.MaxResponseBodySize)
	}
	respBody, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	respHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			respHeaders[key] = values[0]
		}
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    respHeaders,
		Body:       respBody,
	}, nil
}

// IsValidContentType checks if the content type starts with one of allowedTypes
func IsValidContentType(contentType string, allowedTypes []string) bool {
	if len(allowedTypes) == 0 {
		return true
	}
	for _, t := range allowedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// ErrorResponse writes the error envelope and logs it
func ErrorResponse(c *gin.Context, statusCode int, code, message, details string) {
	logEntry := logrus.WithFields(logrus.Fields{
		"status_code": statusCode,
		"error_code":  code,
		"message":     message,
		"client_ip":   GetClientIP(c),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"request_id":  GetRequestID(c),
	})
	if details != "" {
		logEntry = logEntry.WithField("details", details)
	}

	if statusCode >= 500 {
		logEntry.Error("API error response")
	} else {
		logEntry.Info("API client error response")
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: GetRequestID(c),
		},
	})
}

// SuccessResponse returns a standardized success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Timestamp: time.Now(),
			RequestID: GetRequestID(c),
		},
	})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, "")
}

// Forbidden returns a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "You do not have permission to access this resource"
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, "")
}

// NotFound returns a 404 Not Found response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "The requested resource was not found"
	}
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", message, "")
}

// TooManyRequests returns a 429 Too Many Requests response
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "Too many requests, please try again later"
	}
	ErrorResponse(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", message, "")
}

// InternalServerError returns a 500 Internal Server Error response
func InternalServerError(c *gin.Context, message string) {
	if message == "" {
		message = "An internal server error occurred"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, "")
}

// BadGateway reports a failure of an upstream service such as the Docker daemon
func BadGateway(c *gin.Context, message, details string) {
	ErrorResponse(c, http.StatusBadGateway, "BAD_GATEWAY", message, details)
}

// ServiceUnavailable returns a 503 Service Unavailable response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "The service is currently unavailable"
	}
	ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "")
}

// BindQuery binds the query parameters to the given struct with error handling
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		BadRequest(c, "Invalid query parameters: "+err.Error())
		return false
	}
	return true
}

// BindURI binds the URI parameters to the given struct with error handling
func BindURI(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindUri(obj); err != nil {
		BadRequest(c, "Invalid URI parameters: "+err.Error())
		return false
	}
	return true
}

// GetClientIP returns the client IP address
func GetClientIP(c *gin.Context) string {
	clientIP := c.ClientIP()
	if clientIP == "" {
		if ip, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
			clientIP = ip
		}
	}
	return clientIP
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return id.String()
}

// GetRequestID retrieves the request ID from the context, assigning one when the
// request has none yet
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := GenerateRequestID()
	c.Set(RequestIDKey, id)
	return id
}
