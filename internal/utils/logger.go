package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevelEnv overrides the configured log level
const LogLevelEnv = "LOG_LEVEL"

// LogOptions mirror the logging section of the configuration
type LogOptions struct {
	Level  string
	Format string
	File   string
	// MaxSize is the size in megabytes a log file reaches before it is rotated
	MaxSize    int
	MaxBackups int
}

// NewLogger creates the logger a binary starts with, before its configuration is loaded
func NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)
	if level, err := logrus.ParseLevel(os.Getenv(LogLevelEnv)); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ConfigureLogger applies opts to logger. When opts.File is set the log is also
// written to that file through lumberjack; the returned closer closes it.
func ConfigureLogger(logger *logrus.Logger, opts LogOptions) (io.Closer, error) {
	level := opts.Level
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = env
	}
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logger.WithError(err).Warn("Invalid log level, defaulting to info")
			parsed = logrus.InfoLevel
		}
		logger.SetLevel(parsed)
	}

	if strings.EqualFold(opts.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	}

	if opts.File == "" {
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
	}
	logger.SetOutput(io.MultiWriter(logger.Out, file))
	return file, nil
}
