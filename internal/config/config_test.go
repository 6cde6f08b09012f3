package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// TestNewConfig documents the defaults; a failure here means a default changed.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default BaseURL is masothue.com", func(t *testing.T) {
		t.Parallel()
		if cfg.BaseURL != "https://masothue.com" {
			t.Errorf("expected BaseURL to be 'https://masothue.com', got '%s'", cfg.BaseURL)
		}
	})

	t.Run("default timeouts are 120s and 30s", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 120*time.Second {
			t.Errorf("expected Timeout to be 120s, got %v", cfg.Timeout)
		}
		if cfg.ConnectTimeout != 30*time.Second {
			t.Errorf("expected ConnectTimeout to be 30s, got %v", cfg.ConnectTimeout)
		}
	})

	t.Run("default MaxAttempts is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxAttempts != 3 {
			t.Errorf("expected MaxAttempts to be 3, got %d", cfg.MaxAttempts)
		}
	})

	t.Run("proxies are required by default", func(t *testing.T) {
		t.Parallel()
		if cfg.ProxyFile != "proxies.txt" {
			t.Errorf("expected ProxyFile to be 'proxies.txt', got '%s'", cfg.ProxyFile)
		}
		if cfg.Direct {
			t.Error("expected direct connections to be off by default")
		}
	})

	t.Run("default rate limit is 5 per hour in file store", func(t *testing.T) {
		t.Parallel()
		if cfg.RateLimit.MaxRequests != 5 {
			t.Errorf("expected MaxRequests to be 5, got %d", cfg.RateLimit.MaxRequests)
		}
		if cfg.RateLimit.Window != time.Hour {
			t.Errorf("expected Window to be 1h, got %v", cfg.RateLimit.Window)
		}
		if cfg.RateLimit.Store != StoreFile {
			t.Errorf("expected Store to be %q, got %q", StoreFile, cfg.RateLimit.Store)
		}
		if !strings.HasSuffix(cfg.RateLimit.Dir, filepath.Join(AppName, "ratelimit")) {
			t.Errorf("expected Dir under the XDG data dir, got %q", cfg.RateLimit.Dir)
		}
	})

	t.Run("breaker is disabled by default", func(t *testing.T) {
		t.Parallel()
		if cfg.Breaker.Enabled {
			t.Error("expected Breaker.Enabled to be false")
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to be valid, got %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "relative base URL", mutate: func(c *Config) { c.BaseURL = "/search" }, wantErr: ErrInvalidBaseURL},
		{name: "ftp base URL", mutate: func(c *Config) { c.BaseURL = "ftp://masothue.com" }, wantErr: ErrInvalidBaseURL},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative connect timeout", mutate: func(c *Config) { c.ConnectTimeout = -time.Second }, wantErr: ErrInvalidConnectTimeout},
		{name: "zero attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, wantErr: ErrInvalidAttempts},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "negative batch interval", mutate: func(c *Config) { c.BatchInterval = -time.Second }, wantErr: ErrInvalidBatchInterval},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "json and markdown", mutate: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, wantErr: ErrConflictingReportFormats},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit.MaxRequests = 0 }, wantErr: ErrInvalidRateLimit},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }, wantErr: ErrInvalidRateLimit},
		{name: "unknown store", mutate: func(c *Config) { c.RateLimit.Store = "redis" }, wantErr: ErrInvalidStoreType},
		{name: "enabled breaker without threshold", mutate: func(c *Config) {
			c.Breaker.Enabled = true
			c.Breaker.ConsecutiveFailures = 0
		}, wantErr: ErrInvalidBreaker},
		{name: "disabled breaker ignores thresholds", mutate: func(c *Config) { c.Breaker.ConsecutiveFailures = 0 }, wantErr: nil},
		{name: "sqlite store", mutate: func(c *Config) { c.RateLimit.Store = StoreSQLite }, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml returns an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".taxlookup")
		if err := os.WriteFile(path, []byte("timeout: [\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error, got nil")
		}
	})

	t.Run("values are applied onto defaults", func(t *testing.T) {
		t.Parallel()

		content := `
timeout: 45s
max_attempts: 5
proxy_file: /etc/taxlookup/proxies.txt
direct: true
ratelimit:
  enabled: true
  max_requests: 10
  store: sqlite
  whitelist:
    - 127.0.0.1
    - 10.0.0.0/8
breaker:
  enabled: true
  timeout: 2m
`
		path := filepath.Join(t.TempDir(), ".taxlookup")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		f.Apply(cfg)

		if cfg.Timeout != 45*time.Second {
			t.Errorf("expected Timeout 45s, got %v", cfg.Timeout)
		}
		if cfg.ConnectTimeout != DefaultConnectTimeout {
			t.Errorf("expected ConnectTimeout to keep its default, got %v", cfg.ConnectTimeout)
		}
		if cfg.MaxAttempts != 5 {
			t.Errorf("expected MaxAttempts 5, got %d", cfg.MaxAttempts)
		}
		if cfg.ProxyFile != "/etc/taxlookup/proxies.txt" || !cfg.Direct {
			t.Errorf("expected proxy file and direct mode from file, got %q (direct=%v)", cfg.ProxyFile, cfg.Direct)
		}
		if !cfg.RateLimit.Enabled || cfg.RateLimit.MaxRequests != 10 || cfg.RateLimit.Store != StoreSQLite {
			t.Errorf("unexpected rate limit config: %+v", cfg.RateLimit)
		}
		if len(cfg.RateLimit.Whitelist) != 2 {
			t.Errorf("expected 2 whitelist entries, got %v", cfg.RateLimit.Whitelist)
		}
		if !cfg.Breaker.Enabled || cfg.Breaker.Timeout != 2*time.Minute {
			t.Errorf("unexpected breaker config: %+v", cfg.Breaker)
		}
		if cfg.Breaker.ConsecutiveFailures != DefaultBreakerFailures {
			t.Errorf("expected default breaker failures, got %d", cfg.Breaker.ConsecutiveFailures)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	lookuper := envconfig.MapLookuper(map[string]string{
		"TAXLOOKUP_MAX_ATTEMPTS":        "4",
		"TAXLOOKUP_TIMEOUT":             "90s",
		"TAXLOOKUP_RATELIMIT_WHITELIST": "127.0.0.1,192.168.1.0",
		"TAXLOOKUP_RATELIMIT_HASH_KEY":  "pepper",
		"TAXLOOKUP_BREAKER_ENABLED":     "true",
		"TAXLOOKUP_DIRECT":              "true",
		"MAX_ATTEMPTS":                  "9",
	})

	if err := applyEnvWith(context.Background(), cfg, lookuper); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MaxAttempts != 4 {
		t.Errorf("expected MaxAttempts 4, got %d", cfg.MaxAttempts)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("expected Timeout 90s, got %v", cfg.Timeout)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("expected ConnectTimeout to keep its default, got %v", cfg.ConnectTimeout)
	}
	if got := strings.Join(cfg.RateLimit.Whitelist, "|"); got != "127.0.0.1|192.168.1.0" {
		t.Errorf("expected whitelist from env, got %q", got)
	}
	if cfg.RateLimit.HashKey != "pepper" {
		t.Errorf("expected hash key from env, got %q", cfg.RateLimit.HashKey)
	}
	if !cfg.Breaker.Enabled {
		t.Error("expected breaker to be enabled from env")
	}
	if !cfg.Direct {
		t.Error("expected direct mode from env")
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("max_attempts: 2\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}
