package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Conversion Tests
// ==========================

func TestConvertToBPMNError_RetryableStoreError(t *testing.T) {
	stdErr := NewStoreUnavailableError("postgres", stderrors.New("connection refused"))

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "STORE_UNAVAILABLE", bpmnErr.Code)
	assert.True(t, bpmnErr.Retryable)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.Equal(t, "STORE_UNAVAILABLE", bpmnErr.ErrorVariables["originalErrorCode"])
}

func TestConvertToBPMNError_ValidationErrorHasNoRetries(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewInvalidQueryParamsError("rawParams: is required"))

	assert.Equal(t, "INVALID_QUERY_PARAMS", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "rawParams: is required", vars["errorDetails"])
}

func TestConvertToBPMNError_UnknownCodePassesThrough(t *testing.T) {
	bpmnErr := ConvertToBPMNError(&StandardError{Code: "SOMETHING_ELSE", Message: "x"})
	assert.Equal(t, "SOMETHING_ELSE", bpmnErr.Code)
}

// ==========================
// Unwrap Tests
// ==========================

func TestStandardError_UnwrapsCause(t *testing.T) {
	err := fmt.Errorf("find listings: %w", NewQueryTimeoutError("findMany", context.DeadlineExceeded))

	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))

	stdErr, ok := AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeQueryTimeout, stdErr.Code)
}

func TestAsStandardError_PlainError(t *testing.T) {
	_, ok := AsStandardError(stderrors.New("plain"))
	assert.False(t, ok)
}

// ==========================
// Category Tests
// ==========================

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeInvalidQueryParams:            "VALIDATION",
		ErrCodeParseError:                    "VALIDATION",
		ErrCodeCacheUnavailable:              "CACHE",
		ErrCodeQueryExecutionFailed:          "DATABASE",
		ErrCodeQueryTimeout:                  "DATABASE",
		ErrCodeDatabaseConnectionFailed:      "DATABASE",
		ErrCodeSearchQueryFailed:             "SEARCH",
		ErrCodeSearchTimeout:                 "SEARCH",
		ErrCodeIndexNotFound:                 "SEARCH",
		ErrCodeElasticsearchConnectionFailed: "SEARCH",
		ErrCodeStoreUnavailable:              "STORE",
		"WHATEVER":                           "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSearchTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeIndexNotFound))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidQueryParams))
}

func TestRetriesFor(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 2}}
	assert.Equal(t, int32(1), retriesFor(job, 3))

	job = entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 5}}
	assert.Equal(t, int32(3), retriesFor(job, 3))
}
