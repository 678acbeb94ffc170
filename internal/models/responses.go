package models

import (
	"time"

	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// --- Standard API Response Structures ---

// SuccessResponse represents a standard successful API response structure.
type SuccessResponse struct {
	Success bool             `json:"success" example:"true"`
	Data    interface{}      `json:"data,omitempty"`
	Meta    MetadataResponse `json:"meta"`
}

// ErrorInfo represents the details of an API error.
// @description Detailed information about an error that occurred during an API request.
type ErrorInfo struct {
	// Code is a machine-readable error code identifying the specific error type.
	// example: DOCKER_UNAVAILABLE
	Code string `json:"code" example:"DOCKER_UNAVAILABLE"`

	// Message is a human-readable description of the error.
	// example: docker ps: Cannot connect to the Docker daemon
	Message string `json:"message" example:"docker ps: Cannot connect to the Docker daemon"`

	// Details provides optional additional information about the error.
	Details string `json:"details,omitempty"`
}

// ErrorResponse represents a standard error API response structure.
// @description Standard structure for returning errors from the API.
type ErrorResponse struct {
	Success bool             `json:"success" example:"false"`
	Error   ErrorInfo        `json:"error"`
	Meta    MetadataResponse `json:"meta"`
}

// MetadataResponse represents common metadata for API responses
type MetadataResponse struct {
	Timestamp time.Time `json:"timestamp" example:"2024-03-01T12:30:00Z"`
	RequestID string    `json:"request_id,omitempty" example:"9f0c3b1e-4a0e-4a57-9d0c-2a7f2b9f4e10"`
}

// LegacyErrorResponse is the {"error": ...} body of the API key check and the /api endpoints
type LegacyErrorResponse struct {
	Error string `json:"error" example:"Invalid or missing API key"`
}

// -----------------------
// System Responses
// -----------------------

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status string `json:"status" example:"Healthy"`
	Code   int    `json:"code" example:"200"`
}

// VersionResponse carries the running or latest released version
type VersionResponse struct {
	Version string `json:"version" example:"v1.0.0"`
	Code    int    `json:"code" example:"200"`
}

// LegacyTableResponse is the body of the /api table endpoints
type LegacyTableResponse struct {
	Data []map[string]interface{} `json:"data"`
	Code int                      `json:"code" example:"200"`
}

// -----------------------
// Port Responses
// -----------------------

// PortsResponse is the data of GET /api/v1/ports
type PortsResponse struct {
	Records   []ports.Record `json:"records"`
	Total     int            `json:"total" example:"12"`
	Sort      string         `json:"sort" example:"external"`
	Query     string         `json:"query,omitempty" example:":8080"`
	Generated time.Time      `json:"generated"`
}

// WarningResponse is one unresolved compose entry
type WarningResponse struct {
	Service string `json:"service" example:"qbittorrent"`
	Entry   string `json:"entry" example:"8999"`
	Message string `json:"message" example:"port.mapping value 8999 on service qbittorrent does not match any port published by VPN container gluetun"`
}

// RefreshResponse reports the outcome of a forced regeneration
type RefreshResponse struct {
	Generated time.Time `json:"generated"`
	Records   int       `json:"records" example:"12"`
	Warnings  int       `json:"warnings" example:"1"`
	Duration  string    `json:"duration" example:"182ms"`
}

// TableResponse holds the rows of one snapshot table
type TableResponse struct {
	Table string                   `json:"table" example:"service_info"`
	Rows  []map[string]interface{} `json:"rows"`
}
