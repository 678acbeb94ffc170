package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Stats are the counters written to dcpd_stats.txt
type Stats struct {
	TotalComposeLines   int
	TotalUniqueServices int
	TotalPortMappings   int
	TotalHostNetworking int
	TotalWarnings       int
	TotalContainerPorts int
	CollectorErrors     int
}

// Pairs returns the stats as ordered key/value pairs
func (s Stats) Pairs() [][2]string {
	return [][2]string{
		{"total_docker_compose_lines", strconv.Itoa(s.TotalComposeLines)},
		{"total_unique_services", strconv.Itoa(s.TotalUniqueServices)},
		{"total_port_mappings", strconv.Itoa(s.TotalPortMappings)},
		{"total_host_networking", strconv.Itoa(s.TotalHostNetworking)},
		{"total_warnings", strconv.Itoa(s.TotalWarnings)},
		{"total_container_ports", strconv.Itoa(s.TotalContainerPorts)},
		{"collector_errors", strconv.Itoa(s.CollectorErrors)},
	}
}

// WriteStats writes one "key: value" line per counter
func WriteStats(w io.Writer, s Stats) error {
	for _, kv := range s.Pairs() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// ReadStats parses "key: value" lines into a map, skipping blank and malformed lines
func ReadStats(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out, scanner.Err()
}
