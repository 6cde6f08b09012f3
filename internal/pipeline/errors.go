package pipeline

import "errors"

var (
	// ErrUnexpectedStatus is returned for non-2xx registry responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrBotDetected is the cause of a 403 on the search request.
	ErrBotDetected = errors.New("request blocked as automated")
	// ErrErrorBanner is the cause of a page showing an error banner.
	ErrErrorBanner = errors.New("registry returned an error page")
	// ErrTaxCodeMismatch is the cause of a detail page for another tax code.
	ErrTaxCodeMismatch = errors.New("tax code mismatch")
)
