package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvProvider reads prefixed environment variables that viper cannot bind directly
type EnvProvider struct {
	log *logrus.Logger

	// Prefix is the prefix for environment variables
	Prefix string
}

// NewEnvProvider creates a new environment provider
func NewEnvProvider(prefix string, log *logrus.Logger) *EnvProvider {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &EnvProvider{log: log, Prefix: prefix}
}

// DefaultEnvProvider returns a provider for DCPD_* variables
func DefaultEnvProvider() *EnvProvider {
	return NewEnvProvider(EnvPrefix, nil)
}

// Get gets an environment variable or returns a default value if not present
func (p *EnvProvider) Get(key, defaultValue string) string {
	fullKey := p.getFullKey(key)
	value, exists := os.LookupEnv(fullKey)
	if !exists {
		p.log.Debugf("Environment variable %s not set, using default", fullKey)
		return defaultValue
	}
	return value
}

// GetArray splits an environment variable on separator, dropping empty elements.
// Format example: "value1,value2,value3"
func (p *EnvProvider) GetArray(key string, defaultValue []string, separator string) []string {
	fullKey := p.getFullKey(key)
	valueStr, exists := os.LookupEnv(fullKey)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, separator)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// IsSet checks if an environment variable is set
func (p *EnvProvider) IsSet(key string) bool {
	_, exists := os.LookupEnv(p.getFullKey(key))
	return exists
}

func (p *EnvProvider) getFullKey(key string) string {
	if p.Prefix == "" {
		return key
	}
	return p.Prefix + "_" + key
}

// GetEnv gets a DCPD_ environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	return DefaultEnvProvider().Get(key, defaultValue)
}

// GetEnvArray gets a DCPD_ array environment variable by splitting a string
func GetEnvArray(key string, defaultValue []string, separator string) []string {
	return DefaultEnvProvider().GetArray(key, defaultValue, separator)
}

// IsEnvSet checks if a DCPD_ environment variable is set
func IsEnvSet(key string) bool {
	return DefaultEnvProvider().IsSet(key)
}
