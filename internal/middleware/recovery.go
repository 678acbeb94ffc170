package middleware

import (
	"errors"
	"net"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// RecoveryMiddleware represents the panic recovery middleware
type RecoveryMiddleware struct {
	logger *logrus.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware
func NewRecoveryMiddleware(logger *logrus.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger: logger,
	}
}

// Recovery returns a middleware that turns panics into a 500 error envelope
func (m *RecoveryMiddleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			m.logger.WithFields(logrus.Fields{
				"error":      rec,
				"stack":      string(debug.Stack()),
				"client_ip":  c.ClientIP(),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": utils.GetRequestID(c),
			}).Error("[Recovery] Panic recovered")

			// a dead connection cannot take a response
			if err, ok := rec.(error); ok && isBrokenPipe(err) {
				c.Abort()
				return
			}

			utils.InternalServerError(c, "An unexpected error occurred")
			c.Abort()
		}()
		c.Next()
	}
}

func isBrokenPipe(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}
	msg := strings.ToLower(sysErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
