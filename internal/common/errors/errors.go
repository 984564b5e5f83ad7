// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"

	ErrCodeSourceRetrievalFailed ErrorCode = "SOURCE_RETRIEVAL_FAILED"
	ErrCodeSearchTimeout         ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound         ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeReconciliationFailed     ErrorCode = "RECONCILIATION_FAILED"
	ErrCodeCitationFormattingFailed ErrorCode = "CITATION_FORMATTING_FAILED"

	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"

	ErrCodeResponseAssemblyFailed ErrorCode = "RESPONSE_ASSEMBLY_FAILED"

	ErrCodeEvidenceRecordFailed ErrorCode = "EVIDENCE_RECORD_FAILED"
	ErrCodeAlertPublishFailed   ErrorCode = "ALERT_PUBLISH_FAILED"

	ErrCodeCacheError    ErrorCode = "CACHE_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error for logging and BPMN variables.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input failed validation", details, false)
}

func NewSourceRetrievalFailedError(err error) *StandardError {
	return newError(ErrCodeSourceRetrievalFailed, "Document search failed", err.Error(), true)
}

func NewSearchTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeSearchTimeout, "Document search timeout",
		fmt.Sprintf("search exceeded %s", timeout), true)
}

func NewIndexNotFoundError(index string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Document index not found", index, false)
}

func NewReconciliationFailedError(err error) *StandardError {
	return newError(ErrCodeReconciliationFailed, "Source reconciliation failed", err.Error(), false)
}

func NewCitationFormattingFailedError(err error) *StandardError {
	return newError(ErrCodeCitationFormattingFailed, "Citation formatting failed", err.Error(), false)
}

func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeLLMTimeout, "Answer generation timeout",
		fmt.Sprintf("generation exceeded %s", timeout), true)
}

func NewLLMSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeLLMSynthesisFailed, "Answer generation API error", err.Error(), true)
}

func NewResponseAssemblyFailedError(details string) *StandardError {
	return newError(ErrCodeResponseAssemblyFailed, "Advisory response could not be assembled", details, false)
}

func NewEvidenceRecordFailedError(err error) *StandardError {
	return newError(ErrCodeEvidenceRecordFailed, "Evidence record insert failed", err.Error(), true)
}

func NewAlertPublishFailedError(err error) *StandardError {
	return newError(ErrCodeAlertPublishFailed, "Conflict alert publish failed", err.Error(), true)
}

func NewCacheError(err error) *StandardError {
	return newError(ErrCodeCacheError, "Cache operation failed", err.Error(), true)
}

func NewDatabaseError(err error) *StandardError {
	return newError(ErrCodeDatabaseError, "Database operation failed", err.Error(), true)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns how many times the engine should retry a job that
// failed with code. Zero means throw a BPMN error instead.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSourceRetrievalFailed,
		ErrCodeLLMSynthesisFailed,
		ErrCodeEvidenceRecordFailed,
		ErrCodeAlertPublishFailed,
		ErrCodeDatabaseError,
		"EXTERNAL_SERVICE_ERROR":
		return 3

	case ErrCodeSearchTimeout,
		ErrCodeCacheError,
		"TIMEOUT_ERROR":
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN error codes equal the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// AsStandardError unwraps err to a StandardError, wrapping unknown errors
// as non-retryable internal errors.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "RETRIEVAL") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "RECONCILIATION") || strings.Contains(codeStr, "CITATION"):
		return "EVIDENCE"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "RECORD") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "ALERT"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
