package ports

import (
	"fmt"
	"sort"
	"strings"
)

// SortMode selects the order of resolved records
type SortMode int

// Sort modes
const (
	SortNone SortMode = iota
	SortExternalPort
	SortServiceName
)

// ParseSortMode accepts the config and query-string spellings of a sort mode
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, nil
	case "external", "external_port", "port":
		return SortExternalPort, nil
	case "name", "service_name", "service":
		return SortServiceName, nil
	default:
		return SortNone, fmt.Errorf("unknown sort mode %q", s)
	}
}

// String returns the config spelling of the mode
func (m SortMode) String() string {
	switch m {
	case SortExternalPort:
		return "external"
	case SortServiceName:
		return "name"
	default:
		return "none"
	}
}

// Sort returns a sorted copy of records. Both orders are stable. External-port order
// is numeric with empty ports last and ties broken by service name.
func Sort(records []Record, mode SortMode) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	switch mode {
	case SortExternalPort:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.ExternalPort.IsEmpty() != b.ExternalPort.IsEmpty() {
				return b.ExternalPort.IsEmpty()
			}
			if a.ExternalPort != b.ExternalPort {
				return a.ExternalPort < b.ExternalPort
			}
			return a.ServiceName < b.ServiceName
		})
	case SortServiceName:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ServiceName < out[j].ServiceName
		})
	}
	return out
}
