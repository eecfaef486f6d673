package feederror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"fjacquet/bankfeed/internal/feederror"
)

func TestAPIError(t *testing.T) {
	err := &feederror.APIError{
		Method: "GET",
		Path:   "/accounts/uid-1/transactions",
		Status: 401,
		Body:   `{"message":"session expired"}`,
	}

	assert.Equal(t, `API GET /accounts/uid-1/transactions failed (401): {"message":"session expired"}`, err.Error())
}

func TestDateRangeError(t *testing.T) {
	err := &feederror.DateRangeError{
		RequestedFrom: "2025-01-01",
		CorrectedFrom: "2025-11-17",
		Status:        422,
	}

	assert.Equal(t, "date range starting 2025-01-01 rejected (422), API minimum is 2025-11-17", err.Error())
}

func TestIngestErrorUnwrap(t *testing.T) {
	cause := &feederror.APIError{Method: "GET", Path: "/x", Status: 500, Body: "boom"}
	err := &feederror.IngestError{Bank: "LHV", Err: cause}

	assert.Contains(t, err.Error(), "ingestion failed for bank LHV")

	var apiErr *feederror.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Status)
}

func TestIngestErrorWrapsThroughFmt(t *testing.T) {
	inner := &feederror.IngestError{Bank: "Swedbank", Err: errors.New("timeout")}
	wrapped := fmt.Errorf("run aborted: %w", inner)

	var ingestErr *feederror.IngestError
	assert.True(t, errors.As(wrapped, &ingestErr))
	assert.Equal(t, "Swedbank", ingestErr.Bank)
}

func TestTotalFailureError(t *testing.T) {
	err := &feederror.TotalFailureError{Banks: []string{"LHV", "Swedbank"}}
	assert.Equal(t, "all banks failed: LHV, Swedbank", err.Error())
}

func TestRecordError(t *testing.T) {
	err := &feederror.RecordError{Field: "date", Value: "", Reason: "no booking or value date"}
	assert.Equal(t, "invalid transaction record: date='': no booking or value date", err.Error())
}
