package database

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// LogrusAdapter adapts a *logrus.Logger to GORM's logger.Writer interface
type LogrusAdapter struct {
	logger *logrus.Logger
}

// NewLogrusAdapter creates a new Logrus adapter for GORM
func NewLogrusAdapter(log *logrus.Logger) *LogrusAdapter {
	return &LogrusAdapter{
		logger: log,
	}
}

// Printf implements the logger.Writer interface.
// GORM filters by its own level, so everything that reaches here is logged at debug.
func (l *LogrusAdapter) Printf(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.WithField("component", "gorm").Debugf(format, args...)
}

type discardWriter struct{}

func (discardWriter) Printf(string, ...interface{}) {}

// newGormLogger builds the GORM logger for the configured log level
func newGormLogger(log *logrus.Logger, level string) logger.Interface {
	var w logger.Writer = discardWriter{}
	if log != nil {
		w = NewLogrusAdapter(log)
	}
	return logger.New(w, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  getLogLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// getLogLevel maps a logrus level name to a GORM log level
func getLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		// GORM's Info level logs SQL
		return logger.Info
	case "info", "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	default:
		return logger.Silent
	}
}
