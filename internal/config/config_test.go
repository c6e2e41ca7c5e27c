package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	embedded := []byte("monitor:\n  interval: 30s\nlogging:\n  level: warn")
	t.Setenv("RESMON_INTERVAL", "45s")
	interval := 10 * time.Second
	cli := CLIOverrides{Interval: &interval, LogLevel: "debug"}

	cfg, err := LoadLayered(cli, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Interval.Duration != 10*time.Second {
		t.Errorf("Interval = %v, want CLI override", cfg.Monitor.Interval.Duration)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want CLI override", cfg.Logging.Level)
	}
}

func TestLoadLayered_EnvOverridesEmbed(t *testing.T) {
	embedded := []byte("monitor:\n  interval: 30s\nreporting:\n  webhook:\n    url: \"https://embedded.example.com\"")
	t.Setenv("RESMON_INTERVAL", "45")
	t.Setenv("RESMON_WEBHOOK_TOKEN", "env_token")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Interval.Duration != 45*time.Second {
		t.Errorf("Interval = %v, want env override", cfg.Monitor.Interval.Duration)
	}
	if cfg.Reporting.Webhook.URL != "https://embedded.example.com" {
		t.Errorf("URL = %q, want embedded value", cfg.Reporting.Webhook.URL)
	}
	if cfg.Reporting.Webhook.Token != "env_token" {
		t.Errorf("Token = %q, want env override", cfg.Reporting.Webhook.Token)
	}
}

func TestLoadLayered_FileOverridesEmbed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resmon.yaml")
	body := "monitor:\n  threads:\n    top_n: 3\npools:\n  - name: orders\n    kind: sqlite\n    dsn: \"file::memory:\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(CLIOverrides{}, []byte("monitor:\n  threads:\n    top_n: 8"), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Threads.TopN != 3 {
		t.Errorf("TopN = %d, want 3 from file", cfg.Monitor.Threads.TopN)
	}
	if !cfg.Monitor.Threads.DeadlockDetection {
		t.Error("DeadlockDetection should keep its default")
	}
	if len(cfg.Pools) != 1 || cfg.Pools[0].Name != "orders" {
		t.Errorf("Pools = %+v, want one pool named orders", cfg.Pools)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Interval.Duration != time.Minute {
		t.Errorf("Interval = %v, want 60s default", cfg.Monitor.Interval.Duration)
	}
	if cfg.Monitor.Threads.StuckThreshold.Duration != 5*time.Minute {
		t.Errorf("StuckThreshold = %v, want 5m default", cfg.Monitor.Threads.StuckThreshold.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadLayered_ExplicitZeroIntervalIsRejected(t *testing.T) {
	zero := time.Duration(0)
	cfg, err := LoadLayered(CLIOverrides{Interval: &zero}, []byte("monitor:\n  interval: 30s"), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Interval.Duration != 0 {
		t.Fatalf("Interval = %v, want explicit zero from CLI", cfg.Monitor.Interval.Duration)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Validate() = %v, want ErrInvalidConfiguration", err)
	}
}

func TestLoadLayered_BadEnvInterval(t *testing.T) {
	t.Setenv("RESMON_INTERVAL", "soon")
	_, err := LoadLayered(CLIOverrides{}, nil, "")
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for unparsable RESMON_INTERVAL, got %v", err)
	}
}

func TestLoadLayered_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Reporting.Log {
		t.Error("log reporter should be enabled by default")
	}
}

func TestDuration_IntegerSeconds(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, []byte("monitor:\n  interval: 90\n  drain_timeout: 1m30s"), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Monitor.Interval.Duration != 90*time.Second {
		t.Errorf("Interval = %v, want 90s", cfg.Monitor.Interval.Duration)
	}
	if cfg.Monitor.DrainTimeout.Duration != 90*time.Second {
		t.Errorf("DrainTimeout = %v, want 90s", cfg.Monitor.DrainTimeout.Duration)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"45", 45 * time.Second, false},
		{" 2m ", 2 * time.Minute, false},
		{"0", 0, false},
		{"5x", 0, true},
		{"5m30", 0, true},
		{"10 minutes", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero interval", func(c *Config) { c.Monitor.Interval.Duration = 0 }, false},
		{"negative interval", func(c *Config) { c.Monitor.Interval.Duration = -time.Second }, false},
		{"negative drain", func(c *Config) { c.Monitor.DrainTimeout.Duration = -time.Second }, false},
		{"negative top n", func(c *Config) { c.Monitor.Threads.TopN = -1 }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, false},
		{"unknown pool kind", func(c *Config) {
			c.Pools = []PoolConfig{{Name: "x", Kind: "mongo", DSN: "mongodb://"}}
		}, false},
		{"sql pool without dsn", func(c *Config) {
			c.Pools = []PoolConfig{{Name: "x", Kind: PoolKindPostgres}}
		}, false},
		{"redis by addr", func(c *Config) {
			c.Pools = []PoolConfig{{Name: "cache", Kind: PoolKindRedis, Addr: "localhost:6379"}}
		}, true},
		{"duplicate names", func(c *Config) {
			c.Pools = []PoolConfig{
				{Name: "a", Kind: PoolKindSQLite, DSN: "file::memory:"},
				{Name: "a", Kind: PoolKindRedis, Addr: "localhost:6379"},
			}
		}, false},
		{"webhook not http", func(c *Config) { c.Reporting.Webhook.URL = "ftp://example.com" }, false},
		{"webhook https", func(c *Config) { c.Reporting.Webhook.URL = "https://hooks.example.com/resmon" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Errorf("error %v should wrap ErrInvalidConfiguration", err)
				}
			}
		})
	}
}

func TestWriteConfig_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "resmon.yaml")

	cfg := DefaultConfig()
	cfg.Monitor.Interval.Duration = 15 * time.Second

	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadLayered(CLIOverrides{}, nil, path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Monitor.Interval.Duration != 15*time.Second {
		t.Errorf("Interval = %v after round trip, want 15s", loaded.Monitor.Interval.Duration)
	}
}
