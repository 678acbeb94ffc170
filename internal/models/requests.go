package models

import (
	"strconv"
	"strings"
)

// PortsQuery is the query string of GET /api/v1/ports
type PortsQuery struct {
	// Sort order: none, external or name
	Sort string `form:"sort" binding:"omitempty,oneof=none external external_port port name service_name service"`
	// Q filters the records; see ports.Filter
	Q string `form:"q" binding:"omitempty,max=128"`
}

// LogsQuery is the query string of the container log endpoints
type LogsQuery struct {
	// Tail is "all" or a number of lines
	Tail       string `form:"tail" binding:"omitempty,max=16"`
	Timestamps bool   `form:"timestamps"`
	Since      string `form:"since" binding:"omitempty,max=64"`
}

// TailValue normalizes Tail, falling back to def when it is neither "all" nor a positive number
func (q LogsQuery) TailValue(def string) string {
	tail := strings.TrimSpace(q.Tail)
	if strings.EqualFold(tail, "all") {
		return "all"
	}
	if n, err := strconv.Atoi(tail); err == nil && n > 0 {
		return tail
	}
	return def
}

// ContainerURI binds the :id path parameter
type ContainerURI struct {
	ID string `uri:"id" binding:"required,max=128"`
}
