package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// LoggingMiddleware logs one line per request
type LoggingMiddleware struct {
	logger     *logrus.Logger
	logHeaders bool
	skipPaths  map[string]bool
}

// LoggingOption configures the logging middleware
type LoggingOption func(*LoggingMiddleware)

// WithHeaderLogging enables logging of request headers
func WithHeaderLogging(enabled bool) LoggingOption {
	return func(m *LoggingMiddleware) {
		m.logHeaders = enabled
	}
}

// WithSkipPaths disables logging for successful requests to the given paths
func WithSkipPaths(paths ...string) LoggingOption {
	return func(m *LoggingMiddleware) {
		for _, p := range paths {
			m.skipPaths[p] = true
		}
	}
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *logrus.Logger, opts ...LoggingOption) *LoggingMiddleware {
	m := &LoggingMiddleware{
		logger:    logger,
		skipPaths: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Logger returns a gin middleware function for logging requests
func (m *LoggingMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := maskQuery(c.Request.URL.Query())

		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < 400 && m.skipPaths[path] {
			return
		}

		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}

		fields := logrus.Fields{
			"status":     statusCode,
			"latency":    time.Since(start).String(),
			"client_ip":  utils.GetClientIP(c),
			"method":     c.Request.Method,
			"path":       fullPath,
			"request_id": c.GetString(utils.RequestIDKey),
			"user_agent": c.Request.UserAgent(),
			"size":       c.Writer.Size(),
		}
		if m.logHeaders {
			headers := make(map[string][]string, len(c.Request.Header))
			for k, v := range c.Request.Header {
				if k == "Authorization" || k == "Cookie" {
					v = []string{"[REDACTED]"}
				}
				headers[k] = v
			}
			fields["request_headers"] = headers
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields["error"] = errs
		}

		entry := m.logger.WithFields(fields)
		switch {
		case statusCode >= 500:
			entry.Error("Request processed with error")
		case statusCode >= 400:
			entry.Warn("Request processed with warning")
		default:
			entry.Info("Request processed")
		}
	}
}

// maskQuery encodes the query with the API key hidden
func maskQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	if _, ok := values[APIKeyParam]; ok {
		values.Set(APIKeyParam, "********")
	}
	return values.Encode()
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = utils.GenerateRequestID()
		}

		c.Set(utils.RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}
