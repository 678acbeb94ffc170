package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig contains configuration for CORS middleware
type CORSConfig struct {
	// AllowOrigins is a list of origins a cross-domain request can be executed from
	AllowOrigins []string

	// AllowMethods is a list of methods the client is allowed to use
	AllowMethods []string

	// AllowHeaders is a list of non-simple headers the client is allowed to use
	AllowHeaders []string

	// ExposeHeaders is a list of headers that are safe to expose to the API
	ExposeHeaders []string

	// MaxAge indicates how long the results of a preflight request can be cached
	MaxAge time.Duration
}

// DefaultCORSConfig allows the read-only dashboard API from the given origins
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
}

// CORS returns the CORS middleware. Requests from other origins pass through without
// CORS headers so the browser rejects them.
func CORS(config CORSConfig) gin.HandlerFunc {
	allowed := normalizeOrigins(config.AllowOrigins)
	maxAgeSeconds := strconv.Itoa(int(config.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" || !isOriginAllowed(allowed, origin) {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
			c.Header("Access-Control-Max-Age", maxAgeSeconds)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if len(config.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
		}
		c.Next()
	}
}

// normalizeOrigins lowercases a copy of origins; no origins means none are allowed
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.ToLower(strings.TrimSpace(origin)); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func isOriginAllowed(allowedOrigins []string, origin string) bool {
	origin = strings.ToLower(origin)
	for _, allowedOrigin := range allowedOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
		// *.example.com
		if strings.HasPrefix(allowedOrigin, "*.") && strings.HasSuffix(origin, allowedOrigin[1:]) {
			return true
		}
	}
	return false
}

// OriginAllowed reports whether origin matches one of origins, using the same rules
// as CORS. Same-origin requests without an Origin header are allowed.
func OriginAllowed(origins []string, origin string) bool {
	if origin == "" {
		return true
	}
	return isOriginAllowed(normalizeOrigins(origins), origin)
}
