package ratelimit

import "errors"

var (
	// ErrInvalidWhitelistEntry is returned for whitelist entries that are
	// neither an IP address nor a CIDR range.
	ErrInvalidWhitelistEntry = errors.New("invalid whitelist entry")

	// ErrInvalidLimit is returned for a non-positive request count or window.
	ErrInvalidLimit = errors.New("invalid rate limit")

	// ErrLockTimeout is returned when a window stays locked by another process.
	ErrLockTimeout = errors.New("timed out waiting for rate limit lock")

	// ErrUnknownStore is returned by OpenStore for an unknown store kind.
	ErrUnknownStore = errors.New("unknown rate limit store")
)
