package ports

import (
	"strings"
)

// Filter returns the records matching a search query.
//
// A numeric query matches the external or internal port exactly, so "80" does not
// match 7801 or 8405. A query starting with ":" matches the external port only. Any
// other query is a case-insensitive substring match against the service name, the
// mapping source and the mapped app. An empty query returns every record.
func Filter(records []Record, query string) []Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	match := textMatcher(strings.ToLower(query))
	if strings.HasPrefix(query, ":") {
		if port, err := ParsePort(query[1:]); err == nil && !port.IsEmpty() {
			match = func(r Record) bool { return r.ExternalPort == port }
		}
	} else if port, err := ParsePort(query); err == nil && !port.IsEmpty() {
		match = func(r Record) bool { return r.ExternalPort == port || r.InternalPort == port }
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func textMatcher(query string) func(Record) bool {
	return func(r Record) bool {
		return strings.Contains(strings.ToLower(r.ServiceName), query) ||
			strings.Contains(strings.ToLower(string(r.Source)), query) ||
			strings.Contains(strings.ToLower(r.MappedApp), query)
	}
}
