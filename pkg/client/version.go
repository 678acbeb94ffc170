package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"

	"github.com/threatflux/dockerComposePortsDump/internal/models"
	"github.com/threatflux/dockerComposePortsDump/internal/pipeline"
)

var _ pipeline.VersionSource = (*APIClient)(nil)

// CurrentVersion returns the version the server runs
func (c *APIClient) CurrentVersion(ctx context.Context) (string, error) {
	return c.version(ctx, APIPathCurrentVersion)
}

// LatestVersion returns the latest released version as known by the server.
// It lets the CLI reuse the server's cached release lookup.
func (c *APIClient) LatestVersion(ctx context.Context) (string, error) {
	return c.version(ctx, APIPathLatestVersion)
}

func (c *APIClient) version(ctx context.Context, path string) (string, error) {
	var resp models.VersionResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	if resp.Version == "" {
		return "", fmt.Errorf("failed to get version: %w: empty version", ErrServerError)
	}
	return resp.Version, nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
