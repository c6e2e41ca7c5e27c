// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is returned for configuration that must prevent
// the monitor from starting.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Pool kinds understood by the pool opener.
const (
	PoolKindPostgres = "postgres"
	PoolKindSQLite   = "sqlite"
	PoolKindRedis    = "redis"
	PoolKindRedisV8  = "redis-v8"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "1m", or from integer seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
// Integers are read as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// ParseDuration parses a Go duration string or a plain number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return parsed, nil
}

// Config holds all monitor configuration.
type Config struct {
	Monitor   MonitorConfig   `yaml:"monitor"`
	Pools     []PoolConfig    `yaml:"pools"`
	Reporting ReportingConfig `yaml:"reporting"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MonitorConfig holds scheduling and collector settings.
type MonitorConfig struct {
	Interval     Duration         `yaml:"interval"`
	DrainTimeout Duration         `yaml:"drain_timeout"`
	Collectors   CollectorToggles `yaml:"collectors"`
	Threads      ThreadConfig     `yaml:"threads"`
}

// CollectorToggles enables metric families independently.
type CollectorToggles struct {
	Memory       bool `yaml:"memory"`
	CPU          bool `yaml:"cpu"`
	Thread       bool `yaml:"thread"`
	ThreadPool   bool `yaml:"thread_pool"`
	DatabasePool bool `yaml:"database_pool"`
}

// ThreadConfig toggles the thread sub-reports.
type ThreadConfig struct {
	StateDistribution bool `yaml:"state_distribution"`
	DeadlockDetection bool `yaml:"deadlock_detection"`
	HighCPUThreads    bool `yaml:"high_cpu_threads"`
	BlockedThreads    bool `yaml:"blocked_threads"`
	TopN              int  `yaml:"top_n"`
	// StuckThreshold is how long a goroutine waits on a lock before it is
	// reported as deadlocked.
	StuckThreshold Duration `yaml:"stuck_threshold"`
}

// PoolConfig describes a connection pool the host binary opens and monitors.
type PoolConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// DSN is a driver DSN for SQL pools, or a redis:// URL.
	DSN string `yaml:"dsn"`
	// Addr is a host:port for redis pools when DSN is empty.
	Addr     string `yaml:"addr"`
	MaxOpen  int    `yaml:"max_open"`
	PoolSize int    `yaml:"pool_size"`
}

// ReportingConfig selects the reporters.
type ReportingConfig struct {
	Log     bool          `yaml:"log"`
	Console bool          `yaml:"console"`
	Color   bool          `yaml:"color"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig holds the JSON webhook reporter settings. An empty URL
// disables the webhook.
type WebhookConfig struct {
	URL     string   `yaml:"url"`
	Token   string   `yaml:"token"`
	Timeout Duration `yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Interval:     Duration{60 * time.Second},
			DrainTimeout: Duration{5 * time.Second},
			Collectors: CollectorToggles{
				Memory:       true,
				CPU:          true,
				Thread:       true,
				ThreadPool:   true,
				DatabasePool: true,
			},
			Threads: ThreadConfig{
				StateDistribution: true,
				DeadlockDetection: true,
				HighCPUThreads:    true,
				BlockedThreads:    true,
				TopN:              5,
				StuckThreshold:    Duration{5 * time.Minute},
			},
		},
		Reporting: ReportingConfig{
			Log:   true,
			Color: true,
			Webhook: WebhookConfig{
				Timeout: Duration{5 * time.Second},
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// CLIOverrides holds values from command-line flags.
// A nil Interval or empty LogLevel is treated as "not set" and skipped; an
// explicit zero interval is applied so that Validate rejects it.
type CLIOverrides struct {
	Interval *time.Duration
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.Interval != nil {
		cfg.Monitor.Interval.Duration = *cli.Interval
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RESMON_INTERVAL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return invalid("RESMON_INTERVAL: %v", err)
		}
		cfg.Monitor.Interval.Duration = d
	}
	if level := os.Getenv("RESMON_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if u := os.Getenv("RESMON_WEBHOOK_URL"); u != "" {
		cfg.Reporting.Webhook.URL = u
	}
	if token := os.Getenv("RESMON_WEBHOOK_TOKEN"); token != "" {
		cfg.Reporting.Webhook.Token = token
	}
	return nil
}

// Validate checks that the configuration can start a monitor. Every
// returned error wraps ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c.Monitor.Interval.Duration <= 0 {
		return invalid("collection interval must be positive (got %s)", c.Monitor.Interval.Duration)
	}
	if c.Monitor.DrainTimeout.Duration < 0 {
		return invalid("drain timeout must not be negative (got %s)", c.Monitor.DrainTimeout.Duration)
	}
	if c.Monitor.Threads.TopN < 0 {
		return invalid("threads.top_n must not be negative (got %d)", c.Monitor.Threads.TopN)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("unknown log level %q", c.Logging.Level)
	}

	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		switch p.Kind {
		case PoolKindPostgres, PoolKindSQLite:
			if p.DSN == "" {
				return invalid("pool %d (%s): dsn is required", i, p.Name)
			}
		case PoolKindRedis, PoolKindRedisV8:
			if p.DSN == "" && p.Addr == "" {
				return invalid("pool %d (%s): dsn or addr is required", i, p.Name)
			}
		default:
			return invalid("pool %d (%s): unknown kind %q", i, p.Name, p.Kind)
		}
		if p.Name != "" {
			if seen[p.Name] {
				return invalid("duplicate pool name %q", p.Name)
			}
			seen[p.Name] = true
		}
	}

	if raw := c.Reporting.Webhook.URL; raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("webhook url must be an http(s) URL (got %q)", raw)
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
