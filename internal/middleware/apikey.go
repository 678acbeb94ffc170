// Package middleware provides the gin middleware of the dcpd API server
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
)

// APIKeyParam is the query parameter carrying the API key
const APIKeyParam = "apikey"

// InvalidAPIKeyMessage is the error returned for a missing or wrong key
const InvalidAPIKeyMessage = "Invalid or missing API key"

// APIKeyConfig configures the API key check
type APIKeyConfig struct {
	// Key is the expected value; empty disables the check
	Key string
	// ExemptPrefixes are path prefixes served without a key
	ExemptPrefixes []string
	// ExemptPaths are exact paths served without a key
	ExemptPaths []string
}

// DefaultAPIKeyConfig exempts the proxy endpoints, the API docs, the dashboard and
// its event stream
func DefaultAPIKeyConfig(key string) APIKeyConfig {
	return APIKeyConfig{
		Key:            key,
		ExemptPrefixes: []string{"/api/proxy/", "/swagger/", "/static/"},
		ExemptPaths:    []string{"/", "/api/v1/events"},
	}
}

func (c APIKeyConfig) exempt(path string) bool {
	for _, p := range c.ExemptPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range c.ExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// APIKey rejects requests whose apikey query parameter does not match the configured key
func APIKey(config APIKeyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Key == "" || config.exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		provided := c.Query(APIKeyParam)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(config.Key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, models.LegacyErrorResponse{Error: InvalidAPIKeyMessage})
			return
		}
		c.Next()
	}
}
