package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "taxlookup"

	// DefaultBaseURL is the registry site every lookup runs against.
	DefaultBaseURL = "https://masothue.com"

	// DefaultTimeout bounds one HTTP request including redirects and body.
	DefaultTimeout = 120 * time.Second

	// DefaultConnectTimeout bounds TCP connect (and proxy handshake).
	DefaultConnectTimeout = 30 * time.Second

	// DefaultMaxAttempts is the number of full attempts per lookup.
	DefaultMaxAttempts = 3

	// DefaultProxyFile is read relative to the working directory.
	DefaultProxyFile = "proxies.txt"

	// DefaultBatchSize of 1 keeps multi-query runs sequential.
	DefaultBatchSize = 1

	// DefaultMaxBodySize limits a single response body.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultRateLimitMax is the number of lookups one client may start per window.
	DefaultRateLimitMax = 5

	// DefaultRateLimitWindow is the sliding window length.
	DefaultRateLimitWindow = time.Hour

	// DefaultBreakerFailures is the number of consecutive failed lookups that opens the breaker.
	DefaultBreakerFailures = 5

	// DefaultBreakerTimeout is how long an open breaker rejects lookups.
	DefaultBreakerTimeout = 60 * time.Second
)

// Rate-limit store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds every option of the lookup tool. It is populated from
// defaults, the config file, the environment and CLI flags, in that order.
type Config struct {
	// BaseURL is the registry origin. Tests point it at an httptest server.
	BaseURL string `env:"BASE_URL, overwrite"`

	// Timeout is the total per-request timeout.
	Timeout time.Duration `env:"TIMEOUT, overwrite"`

	// ConnectTimeout is the TCP connect timeout.
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT, overwrite"`

	// MaxAttempts is the number of attempts per lookup, each with a fresh
	// proxy, fingerprint and session.
	MaxAttempts int `env:"MAX_ATTEMPTS, overwrite"`

	// ProxyFile lists proxy endpoints, one per line. A missing or empty
	// file is a setup error unless Direct is set.
	ProxyFile string `env:"PROXY_FILE, overwrite"`

	// Direct skips the proxy file and connects to the registry from this
	// host. It must be chosen explicitly.
	Direct bool `env:"DIRECT, overwrite"`

	// BatchSize is the number of lookups run concurrently for multi-query runs.
	BatchSize int `env:"BATCH_SIZE, overwrite"`

	// BatchInterval is the minimum spacing between lookup starts in a batch.
	// Zero disables pacing.
	BatchInterval time.Duration `env:"BATCH_INTERVAL, overwrite"`

	// MaxBodySize limits how much of a response body is read.
	MaxBodySize int64 `env:"MAX_BODY_SIZE, overwrite"`

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit config file, if any.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the output writer; they are
	// mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile redirects output to a file.
	ReportFile string

	// IncludeLogs adds the diagnostic trail to the output.
	IncludeLogs bool

	// Queries are the tax codes or company names to look up.
	Queries []string

	RateLimit RateLimitConfig `env:", prefix=RATELIMIT_"`
	Breaker   BreakerConfig   `env:", prefix=BREAKER_"`
}

// RateLimitConfig configures the per-client sliding window.
type RateLimitConfig struct {
	// Enabled gates lookups through the limiter.
	Enabled bool `env:"ENABLED, overwrite"`

	// MaxRequests per Window.
	MaxRequests int `env:"MAX_REQUESTS, overwrite"`

	Window time.Duration `env:"WINDOW, overwrite"`

	// Store is StoreFile or StoreSQLite.
	Store string `env:"STORE, overwrite"`

	// Dir holds the window files or the SQLite database.
	Dir string `env:"DIR, overwrite"`

	// HashKey keys the hash of client IPs used as storage keys.
	HashKey string `env:"HASH_KEY, overwrite"`

	// Whitelist entries are IPs or CIDRs.
	Whitelist []string `env:"WHITELIST, overwrite"`
}

// BreakerConfig configures the circuit breaker around lookups.
type BreakerConfig struct {
	Enabled             bool          `env:"ENABLED, overwrite"`
	ConsecutiveFailures int           `env:"CONSECUTIVE_FAILURES, overwrite"`
	Timeout             time.Duration `env:"TIMEOUT, overwrite"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Timeout:        DefaultTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		ProxyFile:      DefaultProxyFile,
		BatchSize:      DefaultBatchSize,
		MaxBodySize:    DefaultMaxBodySize,
		RateLimit: RateLimitConfig{
			MaxRequests: DefaultRateLimitMax,
			Window:      DefaultRateLimitWindow,
			Store:       StoreFile,
			Dir:         filepath.Join(XDGDataDir(), "ratelimit"),
		},
		Breaker: BreakerConfig{
			ConsecutiveFailures: DefaultBreakerFailures,
			Timeout:             DefaultBreakerTimeout,
		},
	}
}

// XDGDataDir returns the XDG data directory for the tool
// (~/.local/share/taxlookup on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the tool
// (~/.config/taxlookup on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in the configuration.
// Queries are not checked here; the lookup command validates them.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ConnectTimeout <= 0 {
		return ErrInvalidConnectTimeout
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidAttempts
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.BatchInterval < 0 {
		return ErrInvalidBatchInterval
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.Window <= 0 {
		return ErrInvalidRateLimit
	}
	if c.RateLimit.Store != StoreFile && c.RateLimit.Store != StoreSQLite {
		return ErrInvalidStoreType
	}
	if c.Breaker.Enabled && (c.Breaker.ConsecutiveFailures < 1 || c.Breaker.Timeout <= 0) {
		return ErrInvalidBreaker
	}
	return nil
}
