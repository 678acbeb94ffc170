package compose

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vpnCompose = `services:
  vpn:
    image: qmcgaw/gluetun
    ports:
      - "51820:51820/udp"
      - 1194:1194
      - target: 8080
        published: "8923"
        protocol: tcp
  my_service1:
    image: linuxserver/wireguard
    network_mode: service:vpn
    environment:
      - TZ=Etc/UTC
      - port.mapping=51820
  web:
    image: nginx
    ports:
      - "80"
    environment:
      port.mapping1: "80"
      EMPTY:
`

func writeCompose(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFiles(t *testing.T) {
	path := writeCompose(t, t.TempDir(), "docker-compose.yml", vpnCompose)

	project, err := LoadFiles([]string{path})
	require.NoError(t, err)

	assert.Equal(t, []string{"vpn", "my_service1", "web"}, project.Names())
	require.Len(t, project.Files, 1)
	assert.Equal(t, 22, project.Files[0].Lines)
	assert.Equal(t, 3, project.Files[0].Services)
	assert.Equal(t, 22, project.TotalLines())

	vpn, ok := project.Service("vpn")
	require.True(t, ok)
	assert.Equal(t, []string{"51820:51820/udp", "1194:1194", "8923:8080/tcp"}, vpn.Ports)
	assert.Equal(t, path, vpn.File)

	svc, ok := project.Service("my_service1")
	require.True(t, ok)
	target, ok := svc.NetworkTarget()
	assert.True(t, ok)
	assert.Equal(t, "vpn", target)
	assert.Equal(t, []EnvVar{{Key: "TZ", Value: "Etc/UTC"}, {Key: "port.mapping", Value: "51820"}}, svc.Environment)

	web, ok := project.Service("web")
	require.True(t, ok)
	assert.Equal(t, []string{"80"}, web.Ports)
	assert.Equal(t, []EnvVar{{Key: "port.mapping1", Value: "80"}, {Key: "EMPTY", Value: ""}}, web.Environment)

	_, ok = project.Service("missing")
	assert.False(t, ok)
}

func TestLoadFiles_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		target  error
		errMsg  string
	}{
		{
			name:    "invalid yaml",
			content: "services:\n  web: [\n",
			errMsg:  "yaml",
		},
		{
			name:    "services not a mapping",
			content: "services:\n  - web\n",
			target:  ErrServicesNotMapping,
		},
		{
			name:    "duplicate service",
			content: "services:\n  web: {}\n  web: {}\n",
			target:  ErrDuplicateService,
		},
		{
			name:    "ports not a list",
			content: "services:\n  web:\n    ports: \"80:80\"\n",
			errMsg:  "ports must be a list",
		},
		{
			name:    "bad environment",
			content: "services:\n  web:\n    environment: FOO\n",
			errMsg:  "environment must be a list or a mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCompose(t, dir, "compose.yml", tt.content)
			_, err := LoadFiles([]string{path})
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, path, cfgErr.Path)
			assert.Contains(t, err.Error(), path)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestLoadFiles_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yml")
	_, err := LoadFiles([]string{path})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, path, cfgErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFiles_NoPaths(t *testing.T) {
	_, err := LoadFiles(nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestLoadFiles_Merge(t *testing.T) {
	dir := t.TempDir()
	first := writeCompose(t, dir, "a.yml", `services:
  vpn:
    ports: ["1194:1194"]
  app:
    network_mode: service:vpn
    environment:
      port.mapping: "1194"
`)
	second := writeCompose(t, dir, "b.yml", `services:
  app:
    environment:
      port.mapping: "1195"
      port.mapping2: "1196"
  vpn:
    ports: ["1195:1195"]
  extra:
    image: busybox
`)

	project, err := LoadFiles([]string{first, second})
	require.NoError(t, err)

	assert.Equal(t, []string{"vpn", "app", "extra"}, project.Names())
	vpn, _ := project.Service("vpn")
	assert.Equal(t, []string{"1194:1194", "1195:1195"}, vpn.Ports)
	assert.Equal(t, first, vpn.File)

	app, _ := project.Service("app")
	assert.Equal(t, "service:vpn", app.NetworkMode)
	assert.Equal(t, []EnvVar{{Key: "port.mapping", Value: "1195"}, {Key: "port.mapping2", Value: "1196"}}, app.Environment)
	assert.Equal(t, []string{first, second}, project.Paths())
}

func TestLoadFiles_NetworkModeConflict(t *testing.T) {
	dir := t.TempDir()
	first := writeCompose(t, dir, "a.yml", "services:\n  app:\n    network_mode: host\n")
	second := writeCompose(t, dir, "b.yml", "services:\n  app:\n    network_mode: service:vpn\n")

	_, err := LoadFiles([]string{first, second})
	require.ErrorIs(t, err, ErrNetworkModeConflict)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, second, cfgErr.Path)
	assert.Equal(t, "app", cfgErr.Service)
}

func TestLoadBytes_EmptyAndAnchors(t *testing.T) {
	loader := NewLoader(nil)
	project, err := loader.LoadBytes(
		[]string{"empty.yml", "anchors.yml"},
		[][]byte{
			[]byte(""),
			[]byte(`x-vpn: &vpn
  network_mode: service:gluetun
services:
  qbit:
    <<: *vpn
    environment:
      - port.mapping=8080
  gluetun:
    ports:
      - target: 8080
        published: 8080
        host_ip: "::"
  novalue:
`),
		})
	require.NoError(t, err)

	require.Len(t, project.Files, 2)
	assert.Equal(t, 0, project.Files[0].Lines)
	assert.Equal(t, 0, project.Files[0].Services)

	qbit, ok := project.Service("qbit")
	require.True(t, ok)
	assert.Equal(t, "service:gluetun", qbit.NetworkMode)

	gluetun, _ := project.Service("gluetun")
	assert.Equal(t, []string{"[::]:8080:8080"}, gluetun.Ports)

	novalue, ok := project.Service("novalue")
	require.True(t, ok)
	assert.Empty(t, novalue.Ports)
}

func TestService_EnvWithPrefix(t *testing.T) {
	svc := Service{Environment: []EnvVar{
		{Key: "port.mapping", Value: "1"},
		{Key: "TZ", Value: "UTC"},
		{Key: "port.mapping12", Value: "2"},
		{Key: "port.mappingx", Value: "3"},
		{Key: "host.mapping1", Value: "4"},
	}}

	assert.Equal(t, []EnvVar{{Key: "port.mapping", Value: "1"}, {Key: "port.mapping12", Value: "2"}},
		svc.EnvWithPrefix("port.mapping"))
	assert.Equal(t, []EnvVar{{Key: "host.mapping1", Value: "4"}}, svc.EnvWithPrefix("host.mapping"))
}

func TestService_NetworkMode(t *testing.T) {
	assert.True(t, Service{NetworkMode: "host"}.IsHostNetwork())
	assert.False(t, Service{NetworkMode: "bridge"}.IsHostNetwork())

	_, ok := Service{NetworkMode: "service:"}.NetworkTarget()
	assert.False(t, ok)
	_, ok = Service{NetworkMode: "container:abc"}.NetworkTarget()
	assert.False(t, ok)
}
