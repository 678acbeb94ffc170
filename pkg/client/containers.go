package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/docker/docker/api/types/container"

	"github.com/threatflux/dockerComposePortsDump/internal/docker"
)

// ContainerLogOptions represents options for getting container logs
type ContainerLogOptions struct {
	Tail       string
	Timestamps bool
	Since      string
}

func buildContainerLogQueryParams(options *ContainerLogOptions) url.Values {
	query := url.Values{}
	if options == nil {
		return query
	}
	if options.Tail != "" {
		query.Set("tail", options.Tail)
	}
	if options.Timestamps {
		query.Set("timestamps", "true")
	}
	if options.Since != "" {
		query.Set("since", options.Since)
	}
	return query
}

func containerPath(id, suffix string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("container ID cannot be empty")
	}
	return fmt.Sprintf("%s/%s/%s", APIPathContainers, url.PathEscape(id), suffix), nil
}

// ListContainers returns the docker ps view of the server's engine
func (c *APIClient) ListContainers(ctx context.Context) ([]docker.ContainerRow, error) {
	var rows []docker.ContainerRow
	if err := c.doRequest(ctx, http.MethodGet, APIPathContainers, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return rows, nil
}

// ContainerStats returns one docker stats sample per running container
func (c *APIClient) ContainerStats(ctx context.Context) ([]docker.StatsRow, error) {
	var rows []docker.StatsRow
	if err := c.doRequest(ctx, http.MethodGet, APIPathContainerStats, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to get container stats: %w", err)
	}
	return rows, nil
}

// InspectContainer returns the engine's inspect document of a container
func (c *APIClient) InspectContainer(ctx context.Context, id string) (*container.InspectResponse, error) {
	path, err := containerPath(id, "inspect")
	if err != nil {
		return nil, err
	}
	var info container.InspectResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}
	return &info, nil
}

// ContainerLogs copies the log tail of a container into w
func (c *APIClient) ContainerLogs(ctx context.Context, id string, options *ContainerLogOptions, w io.Writer) error {
	path, err := containerPath(id, "logs")
	if err != nil {
		return err
	}
	if _, err := c.download(ctx, http.MethodGet, path, buildContainerLogQueryParams(options), w); err != nil {
		return fmt.Errorf("failed to get container logs: %w", err)
	}
	return nil
}
