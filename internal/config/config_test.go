package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	setupTestEnv(t)

	config, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 60*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, "test", config.Server.Mode)
	assert.Equal(t, []string{"/srv/a/docker-compose.yml", "/srv/b/docker-compose.yml"}, config.Compose.Files)
	assert.Equal(t, "gluetun", config.Compose.VPNContainerName)
	assert.Equal(t, SortOrderExternal, config.Output.DefaultSortOrder)
	assert.Equal(t, "tcp://localhost:2375", config.Docker.Host)
	assert.Equal(t, 2*time.Minute, config.Refresh.Interval)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DCPD_COMPOSE_FILES", "docker-compose.yml")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "dcpd", config.App.Name)
	assert.Equal(t, "v1.0.0", config.App.Version)
	assert.Equal(t, "data", config.Output.DataDir)
	assert.Equal(t, SortOrderNone, config.Output.DefaultSortOrder)
	assert.Equal(t, 0, config.Output.LinesPerPage)
	assert.Equal(t, 55, config.Output.LogSeparatorLength)
	assert.Equal(t, "sqlite", config.Database.Type)
	assert.Equal(t, 10, config.Logging.MaxSize)
	assert.Equal(t, 5, config.Logging.MaxBackups)
	assert.Equal(t, "123456789", config.Server.APIKey)
	assert.Equal(t, "#BB0000", config.ResolveColor(config.Web.BackgroundColor))
}

func TestLoadConfig_NoComposeFiles(t *testing.T) {
	_, err := LoadConfig(WithConfigFile(writeConfigFile(t, "output:\n  data_dir: out\n")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compose.files")
}

func TestLoadConfig_FileAndOverride(t *testing.T) {
	path := writeConfigFile(t, `
compose:
  files:
    - /from/file.yml
  vpn_container_name: vpn
output:
  default_sort_order: name
server:
  port: 8181
`)

	config, err := LoadConfig(WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"/from/file.yml"}, config.Compose.Files)
	assert.Equal(t, SortOrderName, config.Output.DefaultSortOrder)
	assert.Equal(t, 8181, config.Server.Port)

	config, err = LoadConfig(WithConfigFile(path), WithComposeFiles([]string{"/from/flag.yml"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/from/flag.yml"}, config.Compose.Files)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		setupConfig func(*Config)
		wantErr     bool
		errMsg      string
	}{
		{
			name:        "valid config",
			setupConfig: func(c *Config) {},
			wantErr:     false,
		},
		{
			name: "invalid server port",
			setupConfig: func(c *Config) {
				c.Server.Port = 0
			},
			wantErr: true,
			errMsg:  "invalid server port",
		},
		{
			name: "unsupported database type",
			setupConfig: func(c *Config) {
				c.Database.Type = "mysql"
			},
			wantErr: true,
			errMsg:  "unsupported database type",
		},
		{
			name: "missing postgres host",
			setupConfig: func(c *Config) {
				c.Database.Type = "postgres"
				c.Database.Host = ""
				c.Database.Name = "dcpd"
			},
			wantErr: true,
			errMsg:  "postgres host is empty",
		},
		{
			name: "bad sort order",
			setupConfig: func(c *Config) {
				c.Output.DefaultSortOrder = "random"
			},
			wantErr: true,
			errMsg:  "output.default_sort_order",
		},
		{
			name: "no compose files",
			setupConfig: func(c *Config) {
				c.Compose.Files = nil
			},
			wantErr: true,
			errMsg:  "no docker compose files configured",
		},
		{
			name: "blank compose path",
			setupConfig: func(c *Config) {
				c.Compose.Files = []string{"a.yml", " "}
			},
			wantErr: true,
			errMsg:  "compose file path is empty",
		},
		{
			name: "invalid docker host",
			setupConfig: func(c *Config) {
				c.Docker.Host = "/var/run/docker.sock"
			},
			wantErr: true,
			errMsg:  "invalid docker host",
		},
		{
			name: "refresh interval too short",
			setupConfig: func(c *Config) {
				c.Refresh.Enabled = true
				c.Refresh.Interval = 10 * time.Millisecond
			},
			wantErr: true,
			errMsg:  "refresh interval too short",
		},
		{
			name: "invalid log level",
			setupConfig: func(c *Config) {
				c.Logging.Level = "loud"
			},
			wantErr: true,
			errMsg:  "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig(t)
			tt.setupConfig(config)

			err := validateConfig(config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	config := validTestConfig(t)
	config.Server.APIKey = "secret-key"
	config.Database.Password = "db-pass"

	masked := config.MaskSensitiveFields()
	assert.Equal(t, "********", masked.Server.APIKey)
	assert.Equal(t, "********", masked.Database.Password)
	assert.Equal(t, "", masked.Export.Password)
	// original untouched
	assert.Equal(t, "secret-key", config.Server.APIKey)

	for _, line := range config.Summary() {
		assert.NotContains(t, line, "secret-key")
		assert.NotContains(t, line, "db-pass")
	}
}

func TestResolveColor(t *testing.T) {
	config := validTestConfig(t)
	config.Web.Colors = map[string]string{"brand": "#123456"}

	assert.Equal(t, "#123456", config.ResolveColor("brand"))
	assert.Equal(t, "#4682B4", config.ResolveColor("SteelBlue"))
	assert.Equal(t, "#abcdef", config.ResolveColor("#abcdef"))
}

// validTestConfig builds a Config from defaults that passes validation
func validTestConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	var config Config
	require.NoError(t, v.Unmarshal(&config))
	config.Compose.Files = []string{"docker-compose.yml"}
	return &config
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dcpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setupTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DCPD_SERVER_HOST", "127.0.0.1")
	t.Setenv("DCPD_SERVER_PORT", "9090")
	t.Setenv("DCPD_SERVER_READ_TIMEOUT", "60s")
	t.Setenv("DCPD_SERVER_MODE", "test")
	t.Setenv("DCPD_COMPOSE_FILES", "/srv/a/docker-compose.yml, /srv/b/docker-compose.yml")
	t.Setenv("DCPD_COMPOSE_VPN_CONTAINER_NAME", "gluetun")
	t.Setenv("DCPD_OUTPUT_DEFAULT_SORT_ORDER", "external")
	t.Setenv("DCPD_DOCKER_HOST", "tcp://localhost:2375")
	t.Setenv("DCPD_REFRESH_INTERVAL", "2m")
}
