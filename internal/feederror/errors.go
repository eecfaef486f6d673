// Package feederror defines the error types used by the ingestion pipeline.
package feederror

import (
	"fmt"
	"strings"
)

// APIError represents a non-success response from the aggregator API.
// It carries the HTTP status and raw response body for diagnostics.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %s %s failed (%d): %s", e.Method, e.Path, e.Status, e.Body)
}

// DateRangeError represents a rejected transaction listing whose error
// payload embeds a corrected minimum date_from. A caller may retry the
// listing exactly once with the corrected start date.
type DateRangeError struct {
	RequestedFrom string
	CorrectedFrom string
	Status        int
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("date range starting %s rejected (%d), API minimum is %s",
		e.RequestedFrom, e.Status, e.CorrectedFrom)
}

// IngestError represents a failure while ingesting a single bank.
type IngestError struct {
	Bank string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion failed for bank %s: %v", e.Bank, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// TotalFailureError is raised when every configured bank failed during a run.
type TotalFailureError struct {
	Banks []string
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("all banks failed: %s", strings.Join(e.Banks, ", "))
}

// RecordError represents a per-record conversion failure, such as a
// transaction with no resolvable date. Records failing this way are
// dropped from the page, never fatal for the fetch.
type RecordError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("invalid transaction record: %s='%s': %s", e.Field, e.Value, e.Reason)
}
