// Package ports resolves compose services into port records, including ports a
// service borrows from the VPN container whose network it shares.
package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Port is a TCP/UDP port number; zero means the port is not set
type Port uint16

// ParsePort parses a decimal port. An empty string yields the empty port.
func ParsePort(s string) (Port, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	return Port(n), nil
}

// IsEmpty reports whether the port is unset
func (p Port) IsEmpty() bool {
	return p == 0
}

// String returns the decimal port, or "" when empty
func (p Port) String() string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(int(p))
}

// MarshalJSON encodes the empty port as null
func (p Port) MarshalJSON() ([]byte, error) {
	if p == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(p))), nil
}

// UnmarshalJSON accepts a number, a numeric string or null
func (p *Port) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	parsed, err := ParsePort(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MappingSource says how a service came to own a port
type MappingSource string

// Mapping sources
const (
	SourceDirect      MappingSource = "DIRECT"
	SourceVPNShared   MappingSource = "VPN_SHARED"
	SourceHostNetwork MappingSource = "HOST_NETWORK"
)

var (
	// ErrInvalidPort is returned for a non-numeric or out of range port
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidSource is returned for an unknown mapping source
	ErrInvalidSource = errors.New("invalid mapping source")
)

// ParseMappingSource parses the textual form written to CSV and JSON
func ParseMappingSource(s string) (MappingSource, error) {
	switch src := MappingSource(strings.ToUpper(strings.TrimSpace(s))); src {
	case SourceDirect, SourceVPNShared, SourceHostNetwork:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
}

// Record is one resolved port binding of a service
type Record struct {
	ServiceName  string        `json:"service_name"`
	ExternalPort Port          `json:"external_port"`
	InternalPort Port          `json:"internal_port"`
	Source       MappingSource `json:"mapping_source"`
	MappedApp    string        `json:"mapped_app"`
}

// Warning is a non-fatal problem found while resolving. The offending entry is
// left out of the result.
type Warning struct {
	Service string `json:"service"`
	Entry   string `json:"entry"`
	Message string `json:"message"`
}

// String returns the warning message
func (w Warning) String() string {
	return w.Message
}

// Result is the outcome of Resolve
type Result struct {
	Records []Record `json:"records"`
	// HostNetwork lists one record per host-network service, with empty ports
	HostNetwork []Record  `json:"host_network"`
	Warnings    []Warning `json:"warnings"`
}

// VPNMapping lists the services that claimed one VPN-published port
type VPNMapping struct {
	ExternalPort Port     `json:"external_port"`
	Services     []string `json:"services"`
}

// VPNMappings groups the VPN_SHARED records by external port, in first-seen order
func (r Result) VPNMappings() []VPNMapping {
	var mappings []VPNMapping
	index := make(map[Port]int)
	for _, rec := range r.Records {
		if rec.Source != SourceVPNShared {
			continue
		}
		i, ok := index[rec.ExternalPort]
		if !ok {
			i = len(mappings)
			index[rec.ExternalPort] = i
			mappings = append(mappings, VPNMapping{ExternalPort: rec.ExternalPort})
		}
		mappings[i].Services = append(mappings[i].Services, rec.ServiceName)
	}
	return mappings
}

// Services returns the distinct service names across records and host-network
// entries, in first-seen order
func (r Result) Services() []string {
	seen := make(map[string]bool)
	var names []string
	for _, list := range [][]Record{r.Records, r.HostNetwork} {
		for _, rec := range list {
			if !seen[rec.ServiceName] {
				seen[rec.ServiceName] = true
				names = append(names, rec.ServiceName)
			}
		}
	}
	return names
}
