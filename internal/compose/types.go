// Package compose loads the services of one or more Docker Compose files
package compose

import (
	"errors"
	"fmt"
	"strings"
)

// Network mode values understood by the resolver
const (
	NetworkModeHost          = "host"
	NetworkModeServicePrefix = "service:"
)

var (
	// ErrServicesNotMapping is returned when a file's top-level services key is not a mapping
	ErrServicesNotMapping = errors.New("services must be a mapping")

	// ErrNetworkModeConflict is returned when two files give one service different network modes
	ErrNetworkModeConflict = errors.New("conflicting network_mode")

	// ErrDuplicateService is returned when a service name appears twice in one file
	ErrDuplicateService = errors.New("duplicate service definition")

	// ErrNoFiles is returned when LoadFiles is called without paths
	ErrNoFiles = errors.New("no compose files given")
)

// ConfigError reports a compose file that could not be loaded
type ConfigError struct {
	Path    string
	Service string
	Line    int
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Service != "" {
		fmt.Fprintf(&b, ": service %q", e.Service)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// EnvVar is one environment entry of a service, in declaration order
type EnvVar struct {
	Key   string
	Value string
}

// Service is the subset of a compose service the port resolver needs
type Service struct {
	Name string
	// Ports holds short-syntax port specs; long-syntax entries are normalized on load
	Ports       []string
	Environment []EnvVar
	NetworkMode string
	// File is the first file that defined the service
	File string
}

// NetworkTarget returns the service named by a "service:<name>" network mode
func (s Service) NetworkTarget() (string, bool) {
	if !strings.HasPrefix(s.NetworkMode, NetworkModeServicePrefix) {
		return "", false
	}
	target := strings.TrimSpace(strings.TrimPrefix(s.NetworkMode, NetworkModeServicePrefix))
	return target, target != ""
}

// IsHostNetwork reports whether the service runs on the host network
func (s Service) IsHostNetwork() bool {
	return s.NetworkMode == NetworkModeHost
}

// EnvWithPrefix returns the environment entries whose key is prefix or prefix followed by digits
func (s Service) EnvWithPrefix(prefix string) []EnvVar {
	var out []EnvVar
	for _, env := range s.Environment {
		if !strings.HasPrefix(env.Key, prefix) {
			continue
		}
		suffix := env.Key[len(prefix):]
		if strings.Trim(suffix, "0123456789") != "" {
			continue
		}
		out = append(out, env)
	}
	return out
}

// File describes one loaded compose file
type File struct {
	Path     string
	Lines    int
	Services int
}

// Project is the merged view of every loaded compose file
type Project struct {
	Files    []File
	Services []Service
	index    map[string]int
}

// Names returns the service names in first-seen order
func (p *Project) Names() []string {
	names := make([]string, len(p.Services))
	for i, svc := range p.Services {
		names[i] = svc.Name
	}
	return names
}

// Service looks up a service by name
func (p *Project) Service(name string) (Service, bool) {
	i, ok := p.index[name]
	if !ok {
		return Service{}, false
	}
	return p.Services[i], true
}

// TotalLines returns the line count summed over all files
func (p *Project) TotalLines() int {
	total := 0
	for _, f := range p.Files {
		total += f.Lines
	}
	return total
}

// Paths returns the loaded file paths in load order
func (p *Project) Paths() []string {
	paths := make([]string, len(p.Files))
	for i, f := range p.Files {
		paths[i] = f.Path
	}
	return paths
}
