package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/logship/pkg/sharedkey"
)

// Default values for the ingestion server configuration.
const (
	DefaultHTTPPort   = 8080
	DefaultRecordTTL  = 15 * time.Minute
	DefaultMaxRecords = 10000
	DefaultMaxSkew    = 15 * time.Minute
	DefaultAuthMode   = "sharedkey"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. Other top-level keys in the same file are ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort serves both the ingestion endpoint and the query API (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures SharedKey verification of posted records.
	Auth AuthConfig `yaml:"auth"`

	// Records controls in-memory retention of accepted records.
	Records RecordsConfig `yaml:"records"`

	// FailFirst answers the first N ingestion requests with HTTP 500 so
	// retry behaviour can be exercised end to end.
	FailFirst int `yaml:"fail_first"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: sharedkey | none.
	Mode string `yaml:"mode"`

	// CustomerID is the workspace ID clients must sign with.
	CustomerID string `yaml:"customer_id"`

	// KeyEnv is the name of the environment variable that holds the base64
	// workspace key. Used when Mode == "sharedkey".
	KeyEnv string `yaml:"key_env"`

	// MaxSkew rejects requests whose x-ms-date is further than this from
	// the server clock. Default: 15m.
	MaxSkew time.Duration `yaml:"max_skew"`
}

// Key returns the expected shared key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Enabled reports whether requests must carry a valid signature.
func (a AuthConfig) Enabled() bool {
	return a.Mode == "sharedkey"
}

// RecordsConfig controls in-memory record retention.
type RecordsConfig struct {
	// TTL is how long an accepted record stays queryable. Default: 15m.
	TTL time.Duration `yaml:"ttl"`

	// Max caps the number of records kept per Log-Type; the oldest are
	// dropped first. Default: 10000.
	Max int `yaml:"max"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Auth: AuthConfig{
				Mode:    DefaultAuthMode,
				MaxSkew: DefaultMaxSkew,
			},
			Records: RecordsConfig{
				TTL: DefaultRecordTTL,
				Max: DefaultMaxRecords,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "sharedkey":
		if s.Auth.CustomerID == "" {
			return fmt.Errorf("server.auth.customer_id is required in sharedkey mode")
		}
		if _, err := sharedkey.New(s.Auth.CustomerID, s.Auth.Key()); err != nil {
			return fmt.Errorf("server.auth.key_env: %w", err)
		}
	case "none":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want sharedkey|none", s.Auth.Mode)
	}
	if s.Auth.MaxSkew < 0 {
		return fmt.Errorf("server.auth.max_skew must not be negative")
	}
	if s.Records.TTL < 0 {
		return fmt.Errorf("server.records.ttl must not be negative")
	}
	if s.Records.Max <= 0 {
		return fmt.Errorf("server.records.max must be positive")
	}
	if s.FailFirst < 0 {
		return fmt.Errorf("server.fail_first must not be negative")
	}
	return nil
}
