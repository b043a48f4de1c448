// Package scrape composes the account pool, session driver, and extraction
// engine into a single comment-scraping flow.
package scrape

import (
	"errors"
	"fmt"
)

// Kind classifies a scrape failure. The HTTP layer maps each kind to a
// status code; the flow never lets a raw browser error cross this boundary.
type Kind string

const (
	// KindInput: the caller's request was malformed (bad post URL).
	KindInput Kind = "input_error"
	// KindPoolExhausted: no account is eligible right now. Retryable.
	KindPoolExhausted Kind = "pool_exhausted"
	// KindAuth: login with the chosen account failed. Attributed to it.
	KindAuth Kind = "authentication_error"
	// KindExtraction: the post page could not be loaded or evaluated.
	KindExtraction Kind = "extraction_error"
	// KindDriverFatal: the browser layer itself is broken. Not attributed
	// to any account.
	KindDriverFatal Kind = "driver_fatal"
)

// Error is the only error type ScrapeComments returns.
type Error struct {
	Kind    Kind
	Message string // safe for API responses; never carries credentials
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the same request later can succeed
// without operator intervention.
func (e *Error) Retryable() bool {
	return e.Kind == KindPoolExhausted
}

// KindOf extracts the failure kind, or "" for a foreign error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
