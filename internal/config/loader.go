package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name searched for in the working
// directory and the home directory.
const DefaultConfigFile = ".taxlookup"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TAXLOOKUP_"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the on-disk YAML configuration. Zero values leave the
// corresponding Config field untouched.
type File struct {
	BaseURL        string        `yaml:"base_url,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	ProxyFile      string        `yaml:"proxy_file,omitempty"`
	Direct         *bool         `yaml:"direct,omitempty"`
	BatchSize      int           `yaml:"batch_size,omitempty"`
	BatchInterval  time.Duration `yaml:"batch_interval,omitempty"`
	MaxBodySize    int64         `yaml:"max_body_size,omitempty"`

	RateLimit RateLimitFile `yaml:"ratelimit,omitempty"`
	Breaker   BreakerFile   `yaml:"breaker,omitempty"`
}

// RateLimitFile is the ratelimit section of File.
type RateLimitFile struct {
	Enabled     *bool         `yaml:"enabled,omitempty"`
	MaxRequests int           `yaml:"max_requests,omitempty"`
	Window      time.Duration `yaml:"window,omitempty"`
	Store       string        `yaml:"store,omitempty"`
	Dir         string        `yaml:"dir,omitempty"`
	HashKey     string        `yaml:"hash_key,omitempty"`
	Whitelist   []string      `yaml:"whitelist,omitempty"`
}

// BreakerFile is the breaker section of File.
type BreakerFile struct {
	Enabled             *bool         `yaml:"enabled,omitempty"`
	ConsecutiveFailures int           `yaml:"consecutive_failures,omitempty"`
	Timeout             time.Duration `yaml:"timeout,omitempty"`
}

// LoadConfigFile reads a YAML config file.
// A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply copies every set value of f onto c.
func (f *File) Apply(c *Config) {
	setString(&c.BaseURL, f.BaseURL)
	setDuration(&c.Timeout, f.Timeout)
	setDuration(&c.ConnectTimeout, f.ConnectTimeout)
	setInt(&c.MaxAttempts, f.MaxAttempts)
	setString(&c.ProxyFile, f.ProxyFile)
	if f.Direct != nil {
		c.Direct = *f.Direct
	}
	setInt(&c.BatchSize, f.BatchSize)
	setDuration(&c.BatchInterval, f.BatchInterval)
	if f.MaxBodySize != 0 {
		c.MaxBodySize = f.MaxBodySize
	}

	rl := f.RateLimit
	if rl.Enabled != nil {
		c.RateLimit.Enabled = *rl.Enabled
	}
	setInt(&c.RateLimit.MaxRequests, rl.MaxRequests)
	setDuration(&c.RateLimit.Window, rl.Window)
	setString(&c.RateLimit.Store, rl.Store)
	setString(&c.RateLimit.Dir, rl.Dir)
	setString(&c.RateLimit.HashKey, rl.HashKey)
	if len(rl.Whitelist) > 0 {
		c.RateLimit.Whitelist = append([]string(nil), rl.Whitelist...)
	}

	b := f.Breaker
	if b.Enabled != nil {
		c.Breaker.Enabled = *b.Enabled
	}
	setInt(&c.Breaker.ConsecutiveFailures, b.ConsecutiveFailures)
	setDuration(&c.Breaker.Timeout, b.Timeout)
}

// ApplyEnv overrides c with TAXLOOKUP_* environment variables.
// Unset variables leave fields untouched.
func ApplyEnv(ctx context.Context, c *Config) error {
	return applyEnvWith(ctx, c, envconfig.OsLookuper())
}

func applyEnvWith(ctx context.Context, c *Config, lookuper envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. configPath, when specified
// 2. .taxlookup in the current directory
// 3. .taxlookup in the user's home directory
// 4. config.yaml in the XDG config directory
//
// It returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
