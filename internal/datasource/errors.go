// Package datasource defines the failure kinds shared by external data sources.
package datasource

import (
	"context"
	"errors"
)

var (
	// ErrTranscriptNotFound means the source has no record of the requested transcript or gene.
	ErrTranscriptNotFound = errors.New("transcript not found")

	// ErrSourceUnavailable means the source could not be reached or timed out.
	// Callers may retry with backoff.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// IsRetryable reports whether err is a transient source failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
