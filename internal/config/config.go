package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the configuration loader
const EnvPrefix = "DCPD"

// Sort orders accepted by output.default_sort_order
const (
	SortOrderNone     = "none"
	SortOrderExternal = "external"
	SortOrderName     = "name"
)

// DefaultWebColors maps the color names accepted in the web.* settings to hex values
var DefaultWebColors = map[string]string{
	"black":          "#000000",
	"white":          "#FFFFFF",
	"bright_black":   "#808080",
	"bright_red":     "#FF0000",
	"bright_green":   "#00FF00",
	"bright_yellow":  "#FFFF00",
	"bright_blue":    "#0000FF",
	"bright_magenta": "#FF00FF",
	"bright_cyan":    "#00FFFF",
	"bright_white":   "#C0C0C0",
	"hotpink":        "#FF69B4",
	"cyan":           "#00FFFF",
	"teal":           "#008080",
	"orange":         "#FFA500",
	"purple":         "#800080",
	"lime":           "#00FF00",
	"magenta":        "#FF00FF",
	"navy":           "#000080",
	"olive":          "#808000",
	"steelblue":      "#4682B4",
	"scarlet":        "#BB0000",
	"grey":           "#666666",
}

// Config represents the application configuration.
// A Config is built once by LoadConfig and treated as read-only afterwards.
type Config struct {
	App struct {
		Name          string `mapstructure:"name" validate:"required"`
		Version       string `mapstructure:"version" validate:"required"`
		GitHubRepoURL string `mapstructure:"github_repo_url" validate:"omitempty,url"`
	} `mapstructure:"app"`

	Compose struct {
		Files            []string `mapstructure:"files"`
		VPNContainerName string   `mapstructure:"vpn_container_name"`
	} `mapstructure:"compose"`

	Output struct {
		DataDir            string `mapstructure:"data_dir" validate:"required"`
		HTMLFileName       string `mapstructure:"html_file_name"`
		DefaultSortOrder   string `mapstructure:"default_sort_order" validate:"oneof=none external name"`
		LinesPerPage       int    `mapstructure:"lines_per_page" validate:"gte=0"`
		LogSeparatorLength int    `mapstructure:"log_separator_length" validate:"gte=1"`
	} `mapstructure:"output"`

	Web struct {
		BackgroundColor string            `mapstructure:"background_color"`
		AccentColor     string            `mapstructure:"accent_color"`
		TextColor       string            `mapstructure:"text_color"`
		FontName        string            `mapstructure:"font_name"`
		FontSize        string            `mapstructure:"font_size" validate:"oneof=small medium large"`
		Colors          map[string]string `mapstructure:"colors"`
		PublicDir       string            `mapstructure:"public_dir"`
	} `mapstructure:"web"`

	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		URL             string        `mapstructure:"url" validate:"omitempty,url"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		Mode            string        `mapstructure:"mode" validate:"oneof=development production test"`
		APIKey          string        `mapstructure:"api_key"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
		RateLimit       float64       `mapstructure:"rate_limit" validate:"gte=0"`
		RateBurst       int           `mapstructure:"rate_burst" validate:"gte=0"`
	} `mapstructure:"server"`

	Refresh struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"refresh"`

	Export struct {
		Password string `mapstructure:"password"`
	} `mapstructure:"export"`

	Database struct {
		Type   string `mapstructure:"type"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		User            string        `mapstructure:"user"`
		Password        string        `mapstructure:"password"`
		Name            string        `mapstructure:"name"`
		SSLMode         string        `mapstructure:"ssl_mode"`
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	} `mapstructure:"database"`

	Docker struct {
		Host             string        `mapstructure:"host"`
		APIVersion       string        `mapstructure:"api_version"`
		RequestTimeout   time.Duration `mapstructure:"request_timeout"`
		RetryCount       int           `mapstructure:"retry_count" validate:"gte=0"`
		RetryDelay       time.Duration `mapstructure:"retry_delay"`
		StatsConcurrency int           `mapstructure:"stats_concurrency" validate:"gte=1"`
	} `mapstructure:"docker"`

	Logging struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format" validate:"oneof=text json"`
		File       string `mapstructure:"file"`
		MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
		MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	} `mapstructure:"logging"`
}

// ErrNoComposeFiles is returned when no compose file path is configured
var ErrNoComposeFiles = errors.New("no docker compose files configured; set compose.files or DCPD_COMPOSE_FILES")

// LoadOption customizes a configuration load
type LoadOption func(*loadOptions)

type loadOptions struct {
	configFile   string
	composeFiles []string
	log          *logrus.Logger
}

// WithConfigFile reads the given file instead of searching the default locations
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// WithComposeFiles overrides compose.files
func WithComposeFiles(paths []string) LoadOption {
	return func(o *loadOptions) {
		o.composeFiles = paths
	}
}

// WithLogger sets the logger used to report loader problems
func WithLogger(log *logrus.Logger) LoadOption {
	return func(o *loadOptions) {
		o.log = log
	}
}

// LoadConfig loads the configuration from defaults, an optional config file and
// DCPD_* environment variables, then validates it.
func LoadConfig(opts ...LoadOption) (*Config, error) {
	options := loadOptions{log: logrus.New()}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v)

	if err := loadConfigFile(v, options.configFile); err != nil {
		if options.configFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", options.configFile, err)
		}
		options.log.WithError(err).Warning("Failed to load config file, using defaults and environment variables only")
	}

	loadEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper does not trim list elements taken from the environment
	if files := GetEnvArray("COMPOSE_FILES", nil, ","); len(files) > 0 {
		config.Compose.Files = files
	}
	if len(options.composeFiles) > 0 {
		config.Compose.Files = options.composeFiles
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dcpd")
	v.SetDefault("app.version", "v1.0.0")
	v.SetDefault("app.github_repo_url", "https://api.github.com/repos/samcro1967/docker-compose-ports-dump/releases/latest")

	v.SetDefault("compose.files", []string{})
	v.SetDefault("compose.vpn_container_name", "")

	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.html_file_name", "dcpd_output.html")
	v.SetDefault("output.default_sort_order", SortOrderNone)
	v.SetDefault("output.lines_per_page", 0)
	v.SetDefault("output.log_separator_length", 55)

	v.SetDefault("web.background_color", "scarlet")
	v.SetDefault("web.accent_color", "steelblue")
	v.SetDefault("web.text_color", "white")
	v.SetDefault("web.font_name", "roboto")
	v.SetDefault("web.font_size", "medium")
	v.SetDefault("web.colors", DefaultWebColors)
	v.SetDefault("web.public_dir", "./public")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.url", "")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.mode", "production")
	v.SetDefault("server.api_key", "123456789")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.interval", "5m")

	v.SetDefault("export.password", "")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "data/docker.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("docker.host", "unix:///var/run/docker.sock")
	v.SetDefault("docker.api_version", "")
	v.SetDefault("docker.request_timeout", "30s")
	v.SetDefault("docker.retry_count", 3)
	v.SetDefault("docker.retry_delay", "1s")
	v.SetDefault("docker.stats_concurrency", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)
}

// loadConfigFile loads configuration from a file
func loadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	v.SetConfigName("dcpd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dcpd")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// loadEnvVars binds DCPD_* environment variables
func loadEnvVars(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// ValidationResult holds validation results
type ValidationResult struct {
	Errors []ValidationError
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	result := ValidationResult{
		Errors: []ValidationError{},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.Struct(config); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, ValidationError{
				Field:   strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config.")),
				Message: fmt.Sprintf("failed '%s' check (value: %v)", fe.Tag(), fe.Value()),
			})
		}
	}

	if len(config.Compose.Files) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "compose.files",
			Message: ErrNoComposeFiles.Error(),
		})
	}
	for _, f := range config.Compose.Files {
		if strings.TrimSpace(f) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "compose.files",
				Message: "compose file path is empty",
			})
		}
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("invalid server port: %d", config.Server.Port),
		})
	}

	if config.Refresh.Enabled && config.Refresh.Interval < time.Second {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "refresh.interval",
			Message: fmt.Sprintf("refresh interval too short: %s", config.Refresh.Interval),
		})
	}

	switch config.Database.Type {
	case "sqlite":
		if config.Database.SQLite.Path == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.sqlite.path",
				Message: "sqlite database path is empty",
			})
		}
	case "postgres":
		if config.Database.Host == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.host",
				Message: "postgres host is empty",
			})
		}
		if config.Database.Name == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.name",
				Message: "postgres database name is empty",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.type",
			Message: fmt.Sprintf("unsupported database type: %s", config.Database.Type),
		})
	}

	if !strings.HasPrefix(config.Docker.Host, "unix://") &&
		!strings.HasPrefix(config.Docker.Host, "tcp://") &&
		!strings.HasPrefix(config.Docker.Host, "npipe://") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "docker.host",
			Message: fmt.Sprintf("invalid docker host: %s", config.Docker.Host),
		})
	}

	if _, err := logrus.ParseLevel(config.Logging.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s", config.Logging.Level),
		})
	}

	if len(result.Errors) > 0 {
		errMsgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			errMsgs = append(errMsgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errMsgs, "; "))
	}

	return nil
}

// ResolveColor returns the hex value of a named web color, or the name itself when it is
// not in the color map (so "#123456" passes through).
func (c *Config) ResolveColor(name string) string {
	if hex, ok := c.Web.Colors[strings.ToLower(name)]; ok {
		return hex
	}
	if hex, ok := DefaultWebColors[strings.ToLower(name)]; ok {
		return hex
	}
	return name
}

// DataFile returns the path of an artifact inside the output data directory
func (c *Config) DataFile(name string) string {
	return filepath.Join(c.Output.DataDir, name)
}

// SafeString returns a string with sensitive information masked
func SafeString(val string) string {
	if val == "" {
		return ""
	}
	return "********"
}

// MaskSensitiveFields returns a copy of the config with sensitive fields masked
func (c *Config) MaskSensitiveFields() Config {
	masked := *c
	masked.Server.APIKey = SafeString(masked.Server.APIKey)
	masked.Database.Password = SafeString(masked.Database.Password)
	masked.Export.Password = SafeString(masked.Export.Password)
	return masked
}

// Summary returns "key: value" lines for the debug report, with secrets masked
func (c *Config) Summary() []string {
	m := c.MaskSensitiveFields()
	lines := []string{
		fmt.Sprintf("app.version: %s", m.App.Version),
		fmt.Sprintf("compose.files: %s", strings.Join(m.Compose.Files, ", ")),
		fmt.Sprintf("compose.vpn_container_name: %s", m.Compose.VPNContainerName),
		fmt.Sprintf("output.data_dir: %s", m.Output.DataDir),
		fmt.Sprintf("output.default_sort_order: %s", m.Output.DefaultSortOrder),
		fmt.Sprintf("output.lines_per_page: %d", m.Output.LinesPerPage),
		fmt.Sprintf("server.address: %s:%d", m.Server.Host, m.Server.Port),
		fmt.Sprintf("server.api_key: %s", m.Server.APIKey),
		fmt.Sprintf("refresh.interval: %s", m.Refresh.Interval),
		fmt.Sprintf("database.type: %s", m.Database.Type),
		fmt.Sprintf("database.password: %s", m.Database.Password),
		fmt.Sprintf("docker.host: %s", m.Docker.Host),
		fmt.Sprintf("logging.level: %s", m.Logging.Level),
	}
	colors := make([]string, 0, len(m.Web.Colors))
	for name := range m.Web.Colors {
		colors = append(colors, name)
	}
	sort.Strings(colors)
	lines = append(lines, fmt.Sprintf("web.colors: %s", strings.Join(colors, ", ")))
	return lines
}

// MakeDirectory creates a directory if it doesn't exist
func MakeDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}
