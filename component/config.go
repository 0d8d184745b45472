// Package component loads the service configuration file.
// YAML, TOML and JSON are accepted and selected by file extension.
package component

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default values applied before a file is decoded.
const (
	DefaultName     = "Absolutely Not Helpful MCP"
	DefaultVersion  = "2.0.0"
	DefaultProfile  = "connector"
	DefaultHTTPAddr = ":8080"

	// DefaultWorkerService is the queue service workers read by default.
	DefaultWorkerService = "sarcasm"
)

// ErrNotFound is returned when no configuration file exists at the searched location.
var ErrNotFound = errors.New("configuration file not found")

// FileNames are the names searched for when Load is given a directory.
var FileNames = []string{"sarcasm.yaml", "sarcasm.yml", "sarcasm.toml", "sarcasm.json"}

// Config is the service configuration.
type Config struct {
	// Identity
	Name    string `yaml:"name" toml:"name" json:"name"`
	Version string `yaml:"version" toml:"version" json:"version"`

	// Profile selects the tool set: "connector" or "classic".
	Profile string `yaml:"profile" toml:"profile" json:"profile"`

	// Expose is an optional CEL expression over name, title and tags that
	// selects which profile tools are registered.
	Expose string `yaml:"expose,omitempty" toml:"expose,omitempty" json:"expose,omitempty"`

	HTTP      HTTPConfig      `yaml:"http" toml:"http" json:"http"`
	GRPC      GRPCConfig      `yaml:"grpc" toml:"grpc" json:"grpc"`
	Log       LogConfig       `yaml:"log" toml:"log" json:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry" json:"telemetry"`

	// Optional backends; nil disables them.
	Redis    *RedisConfig    `yaml:"redis,omitempty" toml:"redis,omitempty" json:"redis,omitempty"`
	Registry *RegistryConfig `yaml:"registry,omitempty" toml:"registry,omitempty" json:"registry,omitempty"`
	Worker   *WorkerConfig   `yaml:"worker,omitempty" toml:"worker,omitempty" json:"worker,omitempty"`
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr"`

	// ShutdownTimeout is a Go duration string. Default: 10s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty" toml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`
}

// GetShutdownTimeout parses the shutdown timeout, falling back to 10s.
func (h HTTPConfig) GetShutdownTimeout() time.Duration {
	return parseDuration(h.ShutdownTimeout, 10*time.Second)
}

// GRPCConfig configures the optional gRPC listener. An empty Addr disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Format is "text" or "json". Default: text
	Format string `yaml:"format,omitempty" toml:"format,omitempty" json:"format,omitempty"`

	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level,omitempty" toml:"level,omitempty" json:"level,omitempty"`
}

// SlogLevel parses Level, returning slog.LevelInfo when unset or unknown.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if l.Level == "" || level.UnmarshalText([]byte(l.Level)) != nil {
		return slog.LevelInfo
	}
	return level
}

// TelemetryConfig switches the OpenTelemetry providers on.
type TelemetryConfig struct {
	Tracing bool `yaml:"tracing,omitempty" toml:"tracing,omitempty" json:"tracing,omitempty"`
	Metrics bool `yaml:"metrics,omitempty" toml:"metrics,omitempty" json:"metrics,omitempty"`
}

// RedisConfig points at the Redis instance used by the queue transport.
type RedisConfig struct {
	// URL is a redis:// URL. Default: redis://localhost:6379
	URL string `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty"`
}

// GetURL returns the URL or the default.
func (r *RedisConfig) GetURL() string {
	if r == nil || r.URL == "" {
		return "redis://localhost:6379"
	}
	return r.URL
}

// RegistryConfig configures etcd service registration.
type RegistryConfig struct {
	Endpoints []string `yaml:"endpoints" toml:"endpoints" json:"endpoints"`

	// Namespace is the root key prefix. Default: "sarcasm"
	Namespace string `yaml:"namespace,omitempty" toml:"namespace,omitempty" json:"namespace,omitempty"`

	// TTL is the lease TTL in seconds. Default: 30
	TTL int `yaml:"ttl,omitempty" toml:"ttl,omitempty" json:"ttl,omitempty"`
}

// GetNamespace returns the namespace or the default.
func (r *RegistryConfig) GetNamespace() string {
	if r == nil || r.Namespace == "" {
		return "sarcasm"
	}
	return r.Namespace
}

// GetTTL returns the lease TTL in seconds or the default.
func (r *RegistryConfig) GetTTL() int {
	if r == nil || r.TTL <= 0 {
		return 30
	}
	return r.TTL
}

// WorkerConfig defines configuration for queue-based worker execution.
type WorkerConfig struct {
	// Service names the queue the worker reads. Default: "sarcasm"
	Service string `yaml:"service,omitempty" toml:"service,omitempty" json:"service,omitempty"`

	// Concurrency is the number of worker goroutines. Default: 4
	Concurrency int `yaml:"concurrency,omitempty" toml:"concurrency,omitempty" json:"concurrency,omitempty"`

	// ShutdownTimeout is the time to wait for graceful shutdown. Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty" toml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`

	// QueuePrefix is the Redis key prefix. Default: "tool"
	QueuePrefix string `yaml:"queue_prefix,omitempty" toml:"queue_prefix,omitempty" json:"queue_prefix,omitempty"`

	// HeartbeatInterval is the interval between health heartbeats. Default: 10s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty" toml:"heartbeat_interval,omitempty" json:"heartbeat_interval,omitempty"`
}

// GetShutdownTimeout parses the shutdown timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil {
		return 30 * time.Second
	}
	return parseDuration(w.ShutdownTimeout, 30*time.Second)
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil {
		return 10 * time.Second
	}
	return parseDuration(w.HeartbeatInterval, 10*time.Second)
}

// GetConcurrency returns the configured concurrency or the default value.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}

// GetService returns the queue service name or DefaultWorkerService.
func (w *WorkerConfig) GetService() string {
	if w == nil || w.Service == "" {
		return DefaultWorkerService
	}
	return w.Service
}

// GetQueuePrefix returns the queue prefix or the default value.
func (w *WorkerConfig) GetQueuePrefix() string {
	if w == nil || w.QueuePrefix == "" {
		return "tool"
	}
	return w.QueuePrefix
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	return &Config{
		Name:    DefaultName,
		Version: DefaultVersion,
		Profile: DefaultProfile,
		HTTP:    HTTPConfig{Addr: DefaultHTTPAddr},
		Log:     LogConfig{Format: "text", Level: "info"},
	}
}

// Validate checks the fields that cannot fall back to a default.
func (c *Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Registry != nil && len(c.Registry.Endpoints) == 0 {
		errs = append(errs, errors.New("registry.endpoints must not be empty"))
	}
	return errors.Join(errs...)
}

// Load reads and parses a configuration file from the given path on top of
// Default(). If the path is a directory, the first of FileNames present in it
// is used. The format is chosen by extension.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("%w: none of %s in %s", ErrNotFound, strings.Join(FileNames, ", "), path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(filepath.Ext(configPath), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return config, nil
}

// Parse decodes data in the format named by ext (".yaml", ".yml", ".toml"
// or ".json") on top of Default() and validates the result.
func Parse(ext string, data []byte) (*Config, error) {
	config := Default()

	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".toml":
		err = toml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// LoadFromDir searches for a configuration file starting from the given
// directory and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("%w in %s or parent directories", ErrNotFound, dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads the configuration from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
