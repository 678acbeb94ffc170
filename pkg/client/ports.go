package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/output"
	"github.com/threatflux/dockerComposePortsDump/internal/ports"
)

// PortsOptions are the query parameters of the ports listing
type PortsOptions struct {
	// Sort is none, external or name; empty keeps the server's order
	Sort string
	// Query filters the records the way the dashboard search box does
	Query string
}

func (o *PortsOptions) values() url.Values {
	query := url.Values{}
	if o == nil {
		return query
	}
	if o.Sort != "" {
		query.Set("sort", o.Sort)
	}
	if o.Query != "" {
		query.Set("q", o.Query)
	}
	return query
}

// Ports returns the current port report
func (c *APIClient) Ports(ctx context.Context, opts *PortsOptions) (*models.PortsResponse, error) {
	var resp models.PortsResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathPorts, opts.values(), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	return &resp, nil
}

// PortsCSV copies the port report CSV into w
func (c *APIClient) PortsCSV(ctx context.Context, w io.Writer) error {
	if _, err := c.download(ctx, http.MethodGet, APIPathPortsCSV, nil, w); err != nil {
		return fmt.Errorf("failed to download ports CSV: %w", err)
	}
	return nil
}

// HostNetworking returns the services running with network_mode: host
func (c *APIClient) HostNetworking(ctx context.Context) ([]ports.Record, error) {
	var records []ports.Record
	if err := c.doRequest(ctx, http.MethodGet, APIPathHostNetworking, nil, nil, &records); err != nil {
		return nil, fmt.Errorf("failed to list host networking services: %w", err)
	}
	return records, nil
}

// Warnings returns the warnings of the last regeneration
func (c *APIClient) Warnings(ctx context.Context) ([]models.WarningResponse, error) {
	var warnings []models.WarningResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathWarnings, nil, nil, &warnings); err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}
	return warnings, nil
}

// Metadata returns the dashboard metadata blob
func (c *APIClient) Metadata(ctx context.Context) (*output.Metadata, error) {
	var meta output.Metadata
	if err := c.doRequest(ctx, http.MethodGet, APIPathMetadata, nil, nil, &meta); err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	return &meta, nil
}

// Table returns the rows of a snapshot table
func (c *APIClient) Table(ctx context.Context, table string) (*models.TableResponse, error) {
	if table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	var resp models.TableResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathTables+"/"+url.PathEscape(table), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch table %s: %w", table, err)
	}
	return &resp, nil
}

// Refresh asks the server to regenerate the report now
func (c *APIClient) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	var resp models.RefreshResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathRefresh, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to refresh: %w", err)
	}
	return &resp, nil
}

// Export copies the debug archive into w and returns the file name the server
// suggested
func (c *APIClient) Export(ctx context.Context, w io.Writer) (string, error) {
	resp, err := c.download(ctx, http.MethodGet, APIPathExport, nil, w)
	if err != nil {
		return "", fmt.Errorf("failed to export: %w", err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}
