package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

var (
	// ErrResolutionFailed matches every *ResolutionError.
	ErrResolutionFailed = errors.New("resolution failed")
	// ErrGeneNotFound is returned when a gene is not in the repository.
	ErrGeneNotFound = errors.New("gene not found")
)

// ResolutionError reports a failed orchestration step with its cause.
type ResolutionError struct {
	Op           string // "resolve", "resolve canonical", "lookup", "match", "compare"
	Gene         string
	Assembly     genome.Assembly
	TranscriptID string
	Err          error
}

func (e *ResolutionError) Error() string {
	msg := e.Op
	if e.TranscriptID != "" {
		msg += " " + e.TranscriptID
	}
	if e.Gene != "" {
		msg += " of " + e.Gene
	}
	if e.Assembly != "" {
		msg += " on " + string(e.Assembly)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes both ErrResolutionFailed and the cause to errors.Is and
// errors.As.
func (e *ResolutionError) Unwrap() []error {
	return []error{ErrResolutionFailed, e.Err}
}

// sourceErr maps a bare context deadline from a remote call to
// ErrSourceUnavailable.
func sourceErr(err error) error {
	if err == nil || errors.Is(err, datasource.ErrSourceUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", datasource.ErrSourceUnavailable, err)
	}
	return err
}
