package lookup

import "errors"

var (
	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("invalid lookup options")

	// errExhausted marks an exhausted lookup as a breaker failure.
	errExhausted = errors.New("all attempts failed")
)
