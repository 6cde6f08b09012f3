package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidBaseURL is returned when the registry base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConnectTimeout is returned when the connect timeout is not positive.
	ErrInvalidConnectTimeout = errors.New("invalid connect timeout: must be positive")

	// ErrInvalidAttempts is returned when fewer than one attempt is configured.
	ErrInvalidAttempts = errors.New("invalid attempts: must be at least 1")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidBatchInterval is returned when the batch interval is negative.
	ErrInvalidBatchInterval = errors.New("invalid batch interval: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidRateLimit is returned when the limit or window is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: max requests and window must be positive")

	// ErrInvalidStoreType is returned for an unknown rate-limit store backend.
	ErrInvalidStoreType = errors.New("invalid rate-limit store: must be \"file\" or \"sqlite\"")

	// ErrInvalidBreaker is returned when an enabled breaker has non-positive thresholds.
	ErrInvalidBreaker = errors.New("invalid circuit breaker: failures and timeout must be positive")
)
