// ABOUTME: Configuration loading and parsing for chatsync
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete chatsync configuration
type Config struct {
	Remote      RemoteConfig      `yaml:"remote"`
	Database    DatabaseConfig    `yaml:"database"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Replication ReplicationConfig `yaml:"replication"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Analytics   AnalyticsConfig   `yaml:"analytics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RemoteConfig holds the remote chat store endpoint configuration.
// An empty BaseURL disables replication entirely.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// DatabaseConfig holds local database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BreakerConfig holds circuit breaker tuning
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	CooldownRaw string `yaml:"cooldown"`
}

// ReplicationConfig holds replication tuning
type ReplicationConfig struct {
	PageSize int `yaml:"page_size"`
}

// CredentialsConfig points at the TOML credentials file holding the
// user's auth token
type CredentialsConfig struct {
	Path string `yaml:"path"`
}

// AnalyticsConfig holds usage analytics configuration
type AnalyticsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Breaker.FailureThreshold < 0 {
		return fmt.Errorf("breaker.failure_threshold must not be negative")
	}

	if c.Replication.PageSize < 0 {
		return fmt.Errorf("replication.page_size must not be negative")
	}

	// A credentials file only matters when there is a remote to talk to
	if c.Credentials.Path != "" && c.Remote.BaseURL == "" {
		return fmt.Errorf("credentials.path is set but remote.base_url is empty")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Remote.TimeoutRaw != "" {
		cfg.Remote.Timeout, err = time.ParseDuration(cfg.Remote.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing remote timeout %q: %w", cfg.Remote.TimeoutRaw, err)
		}
	}

	if cfg.Breaker.CooldownRaw != "" {
		cfg.Breaker.Cooldown, err = time.ParseDuration(cfg.Breaker.CooldownRaw)
		if err != nil {
			return fmt.Errorf("parsing breaker cooldown %q: %w", cfg.Breaker.CooldownRaw, err)
		}
	}

	return nil
}
