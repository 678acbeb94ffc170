package ports

import (
	"fmt"
	"strings"

	"github.com/threatflux/dockerComposePortsDump/internal/compose"
)

// Environment key prefixes of the mapping conventions. A key matches when it equals
// the prefix or is the prefix followed by digits.
const (
	PortMappingPrefix = "port.mapping"
	HostMappingPrefix = "host.mapping"
)

type portPair struct {
	external Port
	internal Port
}

// Resolve turns compose services into port records.
//
// Services that publish ports directly are resolved first, in service order. Services
// attached to another service's network ("service:<name>") own only the ports that
// the target publishes and that one of their port.mapping variables names; values that
// match nothing become warnings. Host-network services are listed in HostNetwork, and
// each of their host.mapping values adds a HOST_NETWORK record.
//
// Resolve is pure: the same services always give the same result.
func Resolve(services []compose.Service) Result {
	var res Result
	published := make(map[string]map[Port]Port)

	warn := func(svc, entry, format string, args ...interface{}) {
		res.Warnings = append(res.Warnings, Warning{
			Service: svc,
			Entry:   entry,
			Message: fmt.Sprintf(format, args...),
		})
	}

	for _, svc := range services {
		if _, shared := svc.NetworkTarget(); shared {
			continue
		}

		if svc.IsHostNetwork() {
			res.HostNetwork = append(res.HostNetwork, Record{ServiceName: svc.Name, Source: SourceHostNetwork})
			if len(svc.Ports) > 0 {
				warn(svc.Name, strings.Join(svc.Ports, ", "),
					"ports on host-network service %s are ignored; use host.mapping instead", svc.Name)
			}
			seen := make(map[Port]bool)
			for _, env := range svc.EnvWithPrefix(HostMappingPrefix) {
				port, err := ParsePort(env.Value)
				if err != nil || port.IsEmpty() {
					warn(svc.Name, env.Value,
						"%s value %s on service %s is not a valid port", env.Key, strings.TrimSpace(env.Value), svc.Name)
					continue
				}
				if seen[port] {
					continue
				}
				seen[port] = true
				res.Records = append(res.Records, Record{
					ServiceName:  svc.Name,
					ExternalPort: port,
					InternalPort: port,
					Source:       SourceHostNetwork,
					MappedApp:    MappedApp(port),
				})
			}
			continue
		}

		index := make(map[Port]Port)
		seen := make(map[portPair]bool)
		for _, entry := range svc.Ports {
			bindings, err := parseEntry(entry)
			if err != nil {
				warn(svc.Name, entry, "invalid port entry %q on service %s: %v", entry, svc.Name, err)
				continue
			}
			for _, b := range bindings {
				pair := portPair{external: b.External, internal: b.Internal}
				if seen[pair] {
					continue
				}
				seen[pair] = true
				res.Records = append(res.Records, Record{
					ServiceName:  svc.Name,
					ExternalPort: b.External,
					InternalPort: b.Internal,
					Source:       SourceDirect,
					MappedApp:    MappedApp(b.External),
				})
				if _, ok := index[b.External]; !ok && !b.External.IsEmpty() {
					index[b.External] = b.Internal
				}
			}
		}
		published[svc.Name] = index
	}

	for _, svc := range services {
		target, shared := svc.NetworkTarget()
		if !shared {
			continue
		}
		index := published[target]
		seen := make(map[Port]bool)
		for _, env := range svc.EnvWithPrefix(PortMappingPrefix) {
			value := strings.TrimSpace(env.Value)
			port, err := ParsePort(value)
			if err != nil || port.IsEmpty() {
				warn(svc.Name, value, "%s value %s on service %s is not a valid port", env.Key, value, svc.Name)
				continue
			}
			internal, ok := index[port]
			if !ok {
				warn(svc.Name, value,
					"port.mapping value %s on service %s does not match any port published by VPN container %s",
					value, svc.Name, target)
				continue
			}
			if seen[port] {
				continue
			}
			seen[port] = true
			res.Records = append(res.Records, Record{
				ServiceName:  svc.Name,
				ExternalPort: port,
				InternalPort: internal,
				Source:       SourceVPNShared,
				MappedApp:    MappedApp(port),
			})
		}
	}

	return res
}
