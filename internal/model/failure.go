package model

import (
	"errors"
	"fmt"
)

// FailureKind tags why a lookup attempt (or the whole lookup) failed.
type FailureKind int

const (
	// FailureNone means the lookup succeeded.
	FailureNone FailureKind = iota
	// FailureBotDetected is a 403 on the search request.
	FailureBotDetected
	// FailureNotFound covers error banners and pages without a company name.
	FailureNotFound
	// FailureTaxCodeMismatch is a detail page for another tax code.
	FailureTaxCodeMismatch
	// FailureTransport covers DNS, connect, TLS, timeout and unexpected statuses.
	FailureTransport
	// FailureExhausted is returned once every attempt has failed.
	FailureExhausted
	// FailureCancelled means the caller's context ended the lookup.
	FailureCancelled
	// FailureCircuitOpen means the lookup was rejected by an open circuit breaker.
	FailureCircuitOpen
)

var failureNames = map[FailureKind]string{
	FailureNone:            "none",
	FailureBotDetected:     "bot_detected",
	FailureNotFound:        "not_found",
	FailureTaxCodeMismatch: "tax_code_mismatch",
	FailureTransport:       "transport",
	FailureExhausted:       "exhausted",
	FailureCancelled:       "cancelled",
	FailureCircuitOpen:     "circuit_open",
}

// String returns the snake_case name of the kind.
func (k FailureKind) String() string {
	if name, ok := failureNames[k]; ok {
		return name
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Failure is the typed error ending an attempt.
// Message is what ends up in the record's Error field.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

// NewFailure builds a Failure with an optional cause.
func NewFailure(kind FailureKind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: cause}
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// FailureOf returns the kind carried by err, FailureTransport for untyped
// errors and FailureNone for nil.
func FailureOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureTransport
}
