package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		retries   int
		retryable bool
	}{
		{"search failure retries", NewSourceRetrievalFailedError(fmt.Errorf("503")), 3, true},
		{"search timeout retries twice", NewSearchTimeoutError(3 * time.Second), 2, true},
		{"llm timeout retries once", NewLLMTimeoutError(30 * time.Second), 1, true},
		{"validation never retries", NewInputValidationError("sources: required"), 0, false},
		{"reconciliation is deterministic", NewReconciliationFailedError(fmt.Errorf("bad tables")), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmnErr.Code)
			assert.Equal(t, tt.retries, bpmnErr.Retries)
			assert.Equal(t, tt.retryable, bpmnErr.Retryable)
			assert.Equal(t, string(tt.err.Code), bpmnErr.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_Metadata(t *testing.T) {
	stdErr := NewEvidenceRecordFailedError(fmt.Errorf("connection reset")).WithMetadata("recordId", "abc")

	vars := ConvertToBPMNError(stdErr).ToErrorVariables()
	assert.Equal(t, "abc", vars["recordId"])
	assert.Equal(t, "EVIDENCE_RECORD_FAILED", vars["errorCode"])
	assert.Equal(t, true, vars["retryable"])
}

func TestAsStandardError(t *testing.T) {
	original := NewCacheError(fmt.Errorf("redis down"))
	wrapped := fmt.Errorf("reconcile: %w", original)
	assert.Same(t, original, AsStandardError(wrapped))

	unknown := AsStandardError(fmt.Errorf("boom"))
	assert.Equal(t, ErrCodeInternal, unknown.Code)
	assert.False(t, unknown.Retryable)
	assert.Equal(t, "boom", unknown.Details)
}

func TestRetriesFor(t *testing.T) {
	bpmnErr := &BPMNError{Retries: 3}

	assert.Equal(t, int32(3), RetriesFor(entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 5}}, bpmnErr))
	assert.Equal(t, int32(1), RetriesFor(entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 2}}, bpmnErr))
	assert.Equal(t, int32(0), RetriesFor(entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: 1}}, bpmnErr))
}

func TestGetErrorCategory(t *testing.T) {
	categories := map[ErrorCode]string{
		ErrCodeInputValidationFailed:    "VALIDATION",
		ErrCodeSearchTimeout:            "SEARCH",
		ErrCodeSourceRetrievalFailed:    "SEARCH",
		ErrCodeReconciliationFailed:     "EVIDENCE",
		ErrCodeCitationFormattingFailed: "EVIDENCE",
		ErrCodeLLMSynthesisFailed:       "AI",
		ErrCodeEvidenceRecordFailed:     "STORAGE",
		ErrCodeAlertPublishFailed:       "NOTIFICATION",
		ErrCodeInternal:                 "OTHER",
	}
	for code, expected := range categories {
		assert.Equal(t, expected, GetErrorCategory(code), string(code))
	}
	require.True(t, IsRetryableErrorCode(ErrCodeDatabaseError))
	require.False(t, IsRetryableErrorCode(ErrCodeResponseAssemblyFailed))
}
