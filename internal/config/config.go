package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/reactive/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reactive.json"

	// DefaultPort is the default devtools server port.
	DefaultPort = 7070

	// DefaultHost is the default devtools server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus metric namespace.
	DefaultNamespace = "reactive"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/reactive"
)

// Config represents the complete reactive.json configuration.
type Config struct {
	// Log configures the process logger.
	Log LogConfig `json:"log"`

	// Devtools configures the inspector server started by "reactive serve".
	Devtools DevtoolsConfig `json:"devtools"`

	// Metrics configures the Prometheus instrumentation.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing configures the OpenTelemetry instrumentation.
	Tracing TracingConfig `json:"tracing"`

	// Debug configures engine debug output.
	Debug DebugConfig `json:"debug"`

	// Archive configures where "reactive run --archive" stores results.
	Archive ArchiveConfig `json:"archive"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// DevtoolsConfig contains inspector server settings.
type DevtoolsConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// AllowedOrigins lists the origins allowed to open the event stream.
	// Empty means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the engine metrics and serves /metrics.
	Enabled bool `json:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled records a span per effect run.
	Enabled bool `json:"enabled"`

	// TracerName is the instrumentation scope of the tracer.
	TracerName string `json:"tracerName,omitempty"`
}

// ArchiveConfig contains scenario result archive settings.
type ArchiveConfig struct {
	// Location is a directory or an "s3://bucket/prefix" URL. Empty
	// disables archiving unless --archive is given.
	Location string `json:"location,omitempty"`

	// Region is the S3 region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint.
	Endpoint string `json:"endpoint,omitempty"`

	// PathStyle addresses S3 buckets by path.
	PathStyle bool `json:"pathStyle,omitempty"`
}

// DebugConfig mirrors reactive.DebugConfig.
type DebugConfig struct {
	// LogEffectRuns logs every effect run at debug level.
	LogEffectRuns bool `json:"logEffectRuns,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Devtools: DevtoolsConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for reactive.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E201").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Run 'reactive config init' to write a default config file")
		}
		return nil, errors.New("E201").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E201").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is LoadFile, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E201").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E201").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)

	if c.Devtools.Host == "" {
		c.Devtools.Host = DefaultHost
	}
	if c.Devtools.Port == 0 {
		c.Devtools.Port = DefaultPort
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return errors.New("E202").
			WithDetail("log.level must be one of debug, info, warn, error; got " + strconv.Quote(c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E202").
			WithDetail("log.format must be text or json; got " + strconv.Quote(c.Log.Format))
	}
	if c.Devtools.Port < 0 || c.Devtools.Port > 65535 {
		return errors.New("E202").
			WithDetail("devtools.port must be between 0 and 65535")
	}
	if strings.HasPrefix(c.Archive.Location, "s3://") && len(c.Archive.Location) == len("s3://") {
		return errors.New("E202").
			WithDetail("archive.location needs a bucket: s3://bucket/prefix")
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.Log.Level))
	return l, err
}

// DevtoolsAddress returns the listen address of the devtools server.
func (c *Config) DevtoolsAddress() string {
	return net.JoinHostPort(c.Devtools.Host, strconv.Itoa(c.Devtools.Port))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
