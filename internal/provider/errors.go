package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted marks an operation cancelled by its caller. It is never shown to
// the user.
var ErrAborted = fmt.Errorf("aborted: %w", context.Canceled)

// Aborted wraps cause (usually ctx.Err()) so that it matches ErrAborted.
func Aborted(cause error) error {
	if cause == nil || errors.Is(cause, ErrAborted) {
		return ErrAborted
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

// IsAborted reports whether err is a caller cancellation rather than a failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// ProviderError is a non-2xx or otherwise unusable vendor response.
type ProviderError struct {
	Provider string
	Status   int    // HTTP status, 0 when the response was 2xx
	Body     string // truncated response body
	Reason   string // set when the failure is not an HTTP status
}

func (e *ProviderError) Error() string {
	switch {
	case e.Reason != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Reason, e.Status)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	default:
		return fmt.Sprintf("%s: request failed (status %d): %s", e.Provider, e.Status, e.Body)
	}
}

// ParseError is a payload that could not be decoded. Per-chunk parse errors are
// skipped by the stream reader; a final-payload ParseError is fatal.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parsing response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
