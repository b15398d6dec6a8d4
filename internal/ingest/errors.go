// Package ingest implements the parse, filter, resolve, and load
// pipeline for daily sales extracts.
package ingest

import (
	"errors"
	"fmt"

	"github.com/fashionstore/sales-ingest/internal/storage"
	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

var (
	// ErrInvalidDate indicates the run date parameter is not a
	// well-formed YYYYMMDD calendar date. Not retryable without fixing
	// the input.
	ErrInvalidDate = errors.New("invalid run date")

	// ErrSourceUnavailable indicates the extract could not be fetched.
	// Retryable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceCorrupt indicates the malformed-row rate of the extract
	// exceeded the configured threshold. Fatal to the run.
	ErrSourceCorrupt = errors.New("source corrupt")

	// ErrStoreUnavailable indicates the warehouse could not be reached
	// or the run exceeded its store timeout. Retryable.
	ErrStoreUnavailable = errors.New("warehouse unavailable")
)

// MalformedRecordError reports a single source row that could not be
// parsed into the expected shape. Such rows are logged, counted, and
// dropped; they only fail the run through the corrupt-rate threshold.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at line %d: %s", e.Line, e.Reason)
}

// Exit codes returned by the CLI so callers can apply distinct retry
// policies per failure class.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitInvalidDate       = 2
	ExitSourceUnavailable = 3
	ExitSourceCorrupt     = 4
	ExitIntegrity         = 5
	ExitStoreUnavailable  = 6
)

// ExitCode classifies an error into a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var integrity *warehouse.IntegrityError
	switch {
	case errors.Is(err, ErrInvalidDate):
		return ExitInvalidDate
	case errors.Is(err, ErrSourceUnavailable),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, storage.ErrUnavailable):
		return ExitSourceUnavailable
	case errors.Is(err, ErrSourceCorrupt):
		return ExitSourceCorrupt
	case errors.Is(err, ErrStoreUnavailable):
		return ExitStoreUnavailable
	case errors.As(err, &integrity):
		return ExitIntegrity
	}
	return ExitFailure
}
