package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	keyServices    = "services"
	keyPorts       = "ports"
	keyEnvironment = "environment"
	keyNetworkMode = "network_mode"
	keyMerge       = "<<"
	tagNull        = "!!null"
)

// Loader reads compose files into a Project. yaml.v3 nodes are used instead of the
// compose-go loader so that service order survives and one bad port entry does not
// reject the whole file.
type Loader struct {
	logger *logrus.Logger
}

// NewLoader creates a new Loader
func NewLoader(logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Loader{logger: logger}
}

// LoadFiles loads and merges the given compose files with a silent logger
func LoadFiles(paths []string) (*Project, error) {
	return NewLoader(nil).Load(paths)
}

// Load reads every path in order and merges their services
func (l *Loader) Load(paths []string) (*Project, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	project := &Project{index: make(map[string]int)}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		if err := l.add(project, path, content); err != nil {
			return nil, err
		}
	}
	return project, nil
}

// LoadBytes parses in-memory compose documents; names label each document in errors
func (l *Loader) LoadBytes(names []string, contents [][]byte) (*Project, error) {
	if len(names) == 0 || len(names) != len(contents) {
		return nil, ErrNoFiles
	}
	project := &Project{index: make(map[string]int)}
	for i, name := range names {
		if err := l.add(project, name, contents[i]); err != nil {
			return nil, err
		}
	}
	return project, nil
}

func (l *Loader) add(project *Project, path string, content []byte) error {
	services, err := parseDocument(path, content)
	if err != nil {
		return err
	}

	lines := countLines(content)
	project.Files = append(project.Files, File{Path: path, Lines: lines, Services: len(services)})
	if len(services) == 0 {
		l.logger.WithField("path", path).Debug("Compose file has no services")
		return nil
	}

	for _, svc := range services {
		if err := project.merge(path, svc); err != nil {
			return err
		}
	}

	l.logger.WithFields(logrus.Fields{
		"path":     path,
		"services": len(services),
		"lines":    lines,
	}).Debug("Loaded compose file")
	return nil
}

func (p *Project) merge(path string, svc Service) error {
	i, exists := p.index[svc.Name]
	if !exists {
		svc.File = path
		p.index[svc.Name] = len(p.Services)
		p.Services = append(p.Services, svc)
		return nil
	}

	existing := &p.Services[i]
	if svc.NetworkMode != "" {
		if existing.NetworkMode != "" && existing.NetworkMode != svc.NetworkMode {
			return &ConfigError{
				Path:    path,
				Service: svc.Name,
				Err: fmt.Errorf("%w: %q in %s, %q here",
					ErrNetworkModeConflict, existing.NetworkMode, existing.File, svc.NetworkMode),
			}
		}
		existing.NetworkMode = svc.NetworkMode
	}
	existing.Ports = append(existing.Ports, svc.Ports...)

	for _, env := range svc.Environment {
		replaced := false
		for j := range existing.Environment {
			if existing.Environment[j].Key == env.Key {
				existing.Environment[j].Value = env.Value
				replaced = true
				break
			}
		}
		if !replaced {
			existing.Environment = append(existing.Environment, env)
		}
	}
	return nil
}

func parseDocument(path string, content []byte) ([]Service, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Path: path, Line: root.Line, Err: errors.New("top level must be a mapping")}
	}

	servicesNode := fields(root)[keyServices]
	if servicesNode == nil || servicesNode.Tag == tagNull {
		return nil, nil
	}
	if servicesNode.Kind != yaml.MappingNode {
		return nil, &ConfigError{Path: path, Line: servicesNode.Line, Err: ErrServicesNotMapping}
	}

	seen := make(map[string]bool)
	services := make([]Service, 0, len(servicesNode.Content)/2)
	for i := 0; i+1 < len(servicesNode.Content); i += 2 {
		keyNode := servicesNode.Content[i]
		name := keyNode.Value
		if seen[name] {
			return nil, &ConfigError{Path: path, Service: name, Line: keyNode.Line, Err: ErrDuplicateService}
		}
		seen[name] = true

		svc, err := parseService(name, resolve(servicesNode.Content[i+1]))
		if err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				cfgErr.Path = path
				return nil, cfgErr
			}
			return nil, &ConfigError{Path: path, Service: name, Err: err}
		}
		services = append(services, svc)
	}
	return services, nil
}

func parseService(name string, node *yaml.Node) (Service, error) {
	svc := Service{Name: name}
	if node.Tag == tagNull {
		return svc, nil
	}
	if node.Kind != yaml.MappingNode {
		return svc, &ConfigError{Service: name, Line: node.Line, Err: errors.New("service definition must be a mapping")}
	}

	f := fields(node)

	if portsNode := f[keyPorts]; portsNode != nil && portsNode.Tag != tagNull {
		if portsNode.Kind != yaml.SequenceNode {
			return svc, &ConfigError{Service: name, Line: portsNode.Line, Err: errors.New("ports must be a list")}
		}
		for _, item := range portsNode.Content {
			item = resolve(item)
			switch item.Kind {
			case yaml.ScalarNode:
				svc.Ports = append(svc.Ports, strings.TrimSpace(item.Value))
			case yaml.MappingNode:
				svc.Ports = append(svc.Ports, longPortSyntax(item))
			default:
				return svc, &ConfigError{Service: name, Line: item.Line, Err: errors.New("unsupported ports entry")}
			}
		}
	}

	if envNode := f[keyEnvironment]; envNode != nil && envNode.Tag != tagNull {
		env, err := parseEnvironment(envNode)
		if err != nil {
			return svc, &ConfigError{Service: name, Line: envNode.Line, Err: err}
		}
		svc.Environment = env
	}

	if modeNode := f[keyNetworkMode]; modeNode != nil && modeNode.Kind == yaml.ScalarNode {
		svc.NetworkMode = strings.TrimSpace(modeNode.Value)
	}

	return svc, nil
}

func parseEnvironment(node *yaml.Node) ([]EnvVar, error) {
	var env []EnvVar
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode {
				return nil, errors.New("environment list entries must be strings")
			}
			key, value, _ := strings.Cut(item.Value, "=")
			env = append(env, EnvVar{Key: strings.TrimSpace(key), Value: value})
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			valueNode := resolve(node.Content[i+1])
			value := valueNode.Value
			if valueNode.Tag == tagNull {
				value = ""
			}
			env = append(env, EnvVar{Key: node.Content[i].Value, Value: value})
		}
	default:
		return nil, errors.New("environment must be a list or a mapping")
	}
	return env, nil
}

// longPortSyntax renders a long-syntax port mapping as "[host_ip:]published:target[/protocol]"
func longPortSyntax(node *yaml.Node) string {
	f := fields(node)
	value := func(key string) string {
		if n := f[key]; n != nil && n.Kind == yaml.ScalarNode && n.Tag != tagNull {
			return strings.TrimSpace(n.Value)
		}
		return ""
	}

	target, published := value("target"), value("published")
	hostIP, protocol := value("host_ip"), value("protocol")

	var b strings.Builder
	if published != "" {
		if hostIP != "" {
			if strings.Contains(hostIP, ":") {
				hostIP = "[" + hostIP + "]"
			}
			b.WriteString(hostIP + ":")
		}
		b.WriteString(published + ":")
	}
	b.WriteString(target)
	if protocol != "" {
		b.WriteString("/" + protocol)
	}
	return b.String()
}

// fields flattens a mapping node into key -> value, applying "<<" merge keys first so
// explicit keys win.
func fields(node *yaml.Node) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node)
	var explicit [][2]*yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Value != keyMerge {
			explicit = append(explicit, [2]*yaml.Node{key, value})
			continue
		}
		value = resolve(value)
		sources := []*yaml.Node{value}
		if value.Kind == yaml.SequenceNode {
			sources = value.Content
		}
		for _, src := range sources {
			src = resolve(src)
			if src.Kind != yaml.MappingNode {
				continue
			}
			for k, v := range fields(src) {
				if _, ok := out[k]; !ok {
					out[k] = v
				}
			}
		}
	}
	for _, kv := range explicit {
		out[kv[0].Value] = resolve(kv[1])
	}
	return out
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
