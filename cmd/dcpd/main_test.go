package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatflux/dockerComposePortsDump/internal/cli"
	"github.com/threatflux/dockerComposePortsDump/internal/config"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DCPD_COMPOSE_FILES", "")
	t.Setenv("DCPD_OUTPUT_DATA_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Version(t *testing.T) {
	stdout, _, err := execute(t, "-V", "-f", "docker-compose.yml")
	require.NoError(t, err)
	assert.Equal(t, "Docker Compose Ports Dump Version: v1.0.0\n", stdout)
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Equal(t, cli.HelpText, stdout)
}

func TestRootCommand_ShowExamples(t *testing.T) {
	t.Setenv("DCPD_COMPOSE_VPN_CONTAINER_NAME", "gluetun")
	stdout, _, err := execute(t, "-s", "-f", "docker-compose.yml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "network_mode: service:gluetun")
}

func TestRootCommand_FlagErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"two commands", []string{"-e", "-n", "-f", "a.yml"}},
		{"verbose without html", []string{"-v", "-e", "-f", "a.yml"}},
		{"unknown flag", []string{"--bogus"}},
		{"positional argument", []string{"extra"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := execute(t, tc.args...)
			assert.Error(t, err)
			assert.Empty(t, stdout)
		})
	}

	_, _, err := execute(t, "-v", "-e", "-f", "a.yml")
	assert.ErrorIs(t, err, cli.ErrVerboseWithoutHTML)
}

func TestRootCommand_ConfigErrors(t *testing.T) {
	_, stderr, err := execute(t, "-V")
	require.Error(t, err)
	assert.ErrorContains(t, err, config.ErrNoComposeFiles.Error())
	assert.Contains(t, stderr, "Failed to load configuration")

	_, _, err = execute(t, "-V", "-f", "a.yml", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dcpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  version: v9.9.9\ncompose:\n  files:\n    - /srv/docker-compose.yml\n"), 0644))

	stdout, _, err := execute(t, "--config", path, "-V")
	require.NoError(t, err)
	assert.Equal(t, "Docker Compose Ports Dump Version: v9.9.9\n", stdout)
}
