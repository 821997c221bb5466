package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file and
// the environment.
const (
	DefaultHost                  = "ods.opinsights.azure.com"
	DefaultMaxConcurrentRequests = 10
	DefaultSendFrequency         = 5 * time.Second
	DefaultRequestTimeout        = 30 * time.Second
	DefaultShutdownFlushTimeout  = 10 * time.Second
	DefaultSourceLevel           = "INFO"
	DefaultLogLevel              = "info"
)

// Environment variables read on top of the config file. Values set here win
// over the file.
const (
	EnvCustomerID            = "AZURE_LOG_CUSTOMER_ID"
	EnvSharedKey             = "AZURE_LOG_SHARED_KEY"
	EnvDefaultLogType        = "AZURE_LOG_DEFAULT_NAME"
	EnvMaxConcurrentRequests = "AZURE_LOG_MAX_CONCURRENT_REQUESTS"
	EnvSendFrequency         = "AZURE_LOG_SEND_FREQUENCY"
)

// Config is the top-level agent configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Shipper   ShipperConfig   `yaml:"shipper"`
	Sources   []Source        `yaml:"sources"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// WorkspaceConfig identifies the Log Analytics workspace records are sent to.
type WorkspaceConfig struct {
	// CustomerID is the workspace ID. It is also the host prefix of the
	// ingestion endpoint.
	CustomerID string `yaml:"customer_id"`

	// SharedKey is the base64 workspace key. Prefer SharedKeyEnv so the
	// secret stays out of the file.
	SharedKey string `yaml:"shared_key"`

	// SharedKeyEnv names an environment variable holding the shared key.
	SharedKeyEnv string `yaml:"shared_key_env"`

	// DefaultLogType is the Log-Type header used when a record has none.
	DefaultLogType string `yaml:"default_log_type"`

	// Host is the service domain appended to CustomerID.
	Host string `yaml:"host"`

	// Endpoint replaces the whole scheme://host part of the URL, e.g.
	// http://127.0.0.1:8080 for the local ingestion server.
	Endpoint string `yaml:"endpoint"`
}

// Key returns the shared key, resolving SharedKeyEnv when set.
func (w WorkspaceConfig) Key() string {
	if w.SharedKeyEnv != "" {
		if v := os.Getenv(w.SharedKeyEnv); v != "" {
			return v
		}
	}
	return w.SharedKey
}

// BaseURL returns scheme://host for the ingestion endpoint.
func (w WorkspaceConfig) BaseURL() string {
	if w.Endpoint != "" {
		return strings.TrimRight(w.Endpoint, "/")
	}
	return "https://" + w.CustomerID + "." + w.Host
}

// ShipperConfig controls the delivery loop.
type ShipperConfig struct {
	// MaxConcurrentRequests bounds in-flight POSTs within one cycle.
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`

	// SendFrequency is the pause between the end of one cycle and the start
	// of the next.
	SendFrequency time.Duration `yaml:"send_frequency"`

	// RequestTimeout caps a single POST including reading the response.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownFlushTimeout bounds the final delivery attempt on exit.
	ShutdownFlushTimeout time.Duration `yaml:"shutdown_flush_timeout"`

	// UserAgent is sent on every request when non-empty.
	UserAgent string `yaml:"user_agent"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds outbound TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification. Development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Source is a file whose appended lines are shipped as records.
type Source struct {
	// ID names the source; it is reported as the record module.
	ID string `yaml:"id"`

	// Path is the file to follow.
	Path string `yaml:"path"`

	// LogType overrides the workspace default Log-Type for this source.
	LogType string `yaml:"log_type"`

	// Level is the record level assigned to every line.
	Level string `yaml:"level"`

	// FromStart ships the existing content before following new writes.
	FromStart bool `yaml:"from_start"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics. Empty disables it.
	Listen string `yaml:"listen"`
}

// LogConfig controls the agent's own logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Ship forwards the agent's own warnings and errors to the workspace.
	Ship bool `yaml:"ship"`

	// LogType is the Log-Type used for shipped agent logs.
	LogType string `yaml:"log_type"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// defaults and AZURE_LOG_* environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Host: DefaultHost,
		},
		Shipper: ShipperConfig{
			MaxConcurrentRequests: DefaultMaxConcurrentRequests,
			SendFrequency:         DefaultSendFrequency,
			RequestTimeout:        DefaultRequestTimeout,
			ShutdownFlushTimeout:  DefaultShutdownFlushTimeout,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// applyEnv overlays the AZURE_LOG_* variables. Numeric values that do not
// parse are an error so the agent refuses to start.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvCustomerID); ok && v != "" {
		cfg.Workspace.CustomerID = v
	}
	if v, ok := lookup(EnvSharedKey); ok && v != "" {
		cfg.Workspace.SharedKey = v
	}
	if v, ok := lookup(EnvDefaultLogType); ok && v != "" {
		cfg.Workspace.DefaultLogType = v
	}
	if v, ok := lookup(EnvMaxConcurrentRequests); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxConcurrentRequests, err)
		}
		cfg.Shipper.MaxConcurrentRequests = n
	}
	if v, ok := lookup(EnvSendFrequency); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSendFrequency, err)
		}
		cfg.Shipper.SendFrequency = time.Duration(n) * time.Second
	}
	return nil
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Workspace.CustomerID == "" {
		return fmt.Errorf("workspace.customer_id is required")
	}
	key := cfg.Workspace.Key()
	if key == "" {
		return fmt.Errorf("workspace.shared_key is required")
	}
	if _, err := base64.StdEncoding.DecodeString(key); err != nil {
		return fmt.Errorf("workspace.shared_key is not valid base64: %w", err)
	}
	if cfg.Workspace.Endpoint == "" && cfg.Workspace.Host == "" {
		return fmt.Errorf("workspace.host is required when workspace.endpoint is unset")
	}
	if cfg.Shipper.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("shipper.max_concurrent_requests must be positive")
	}
	if cfg.Shipper.SendFrequency <= 0 {
		return fmt.Errorf("shipper.send_frequency must be positive")
	}
	if cfg.Shipper.RequestTimeout <= 0 {
		return fmt.Errorf("shipper.request_timeout must be positive")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	seen := make(map[string]bool, len(cfg.Sources))
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		if src.Path == "" {
			return fmt.Errorf("sources[%d] %q: path is required", i, src.ID)
		}
		if src.Level == "" {
			src.Level = DefaultSourceLevel
		}
	}
	return nil
}
