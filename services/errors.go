package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeRefused     ErrorType = "refused"
	ErrorTypeExternal    ErrorType = "external"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeInternal    ErrorType = "internal"
)

// Error codes distinguish errors that share a type
const (
	CodeEmptyQuery           = "empty_query"
	CodeQueryTooLong         = "query_too_long"
	CodeInvalidQueryMode     = "invalid_query_mode"
	CodeMissingSelection     = "missing_selection"
	CodeInsufficientContext  = "insufficient_context"
	CodeGroundingFailure     = "grounding_failure"
	CodeRetrievalUnavailable = "retrieval_unavailable"
	CodeGenerationFailure    = "generation_failure"
	CodeQueryNotFound        = "query_not_found"
	CodeCollectionMissing    = "collection_missing"
	CodeDimensionMismatch    = "dimension_mismatch"
	CodeHistoryDisabled      = "history_disabled"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on type, and on code when the target carries one.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewCodedError creates a domain error carrying a code
func NewCodedError(errType ErrorType, code, message string, err error) *DomainError {
	de := NewDomainError(errType, message, err)
	de.Code = code
	return de
}

// Sentinels for errors.Is. Never mutate these; build fresh errors with the
// constructors below when details are needed.
var (
	// Caller input errors
	ErrEmptyQuery       = NewCodedError(ErrorTypeValidation, CodeEmptyQuery, "query cannot be empty", nil)
	ErrQueryTooLong     = NewCodedError(ErrorTypeValidation, CodeQueryTooLong, "query exceeds maximum length", nil)
	ErrInvalidQueryMode = NewCodedError(ErrorTypeValidation, CodeInvalidQueryMode, "invalid query type", nil)
	ErrMissingSelection = NewCodedError(ErrorTypeValidation, CodeMissingSelection, "selected text required for selection-based queries", nil)

	// Pipeline outcomes
	ErrInsufficientContext  = NewCodedError(ErrorTypeRefused, CodeInsufficientContext, "insufficient context", nil)
	ErrGroundingFailure     = NewCodedError(ErrorTypeRefused, CodeGroundingFailure, "response not grounded in evidence", nil)
	ErrRetrievalUnavailable = NewCodedError(ErrorTypeUnavailable, CodeRetrievalUnavailable, "similarity search unavailable", nil)
	ErrGenerationFailure    = NewCodedError(ErrorTypeExternal, CodeGenerationFailure, "generation failed", nil)

	// Lookups
	ErrQueryNotFound   = NewCodedError(ErrorTypeNotFound, CodeQueryNotFound, "query not found", nil)
	ErrHistoryDisabled = NewCodedError(ErrorTypeUnavailable, CodeHistoryDisabled, "query history is not enabled", nil)

	// Vector store
	ErrCollectionMissing = NewCodedError(ErrorTypeInternal, CodeCollectionMissing, "collection does not exist", nil)
	ErrDimensionMismatch = NewCodedError(ErrorTypeInternal, CodeDimensionMismatch, "vector dimension mismatch", nil)
)

// NewQueryTooLongError reports the configured limit and the observed length
func NewQueryTooLongError(maxLength, length int) *DomainError {
	return NewCodedError(ErrorTypeValidation, CodeQueryTooLong,
		fmt.Sprintf("query exceeds maximum length of %d characters", maxLength), nil).
		WithDetail("max_length", maxLength).
		WithDetail("length", length)
}

// NewInvalidQueryModeError reports the rejected mode
func NewInvalidQueryModeError(mode string) *DomainError {
	return NewCodedError(ErrorTypeValidation, CodeInvalidQueryMode, "invalid query type", nil).
		WithDetail("query_type", mode)
}

// NewInsufficientContextError carries the human-readable refusal reason
func NewInsufficientContextError(reason string) *DomainError {
	return NewCodedError(ErrorTypeRefused, CodeInsufficientContext, reason, nil)
}

// NewGenerationFailure wraps a transport or upstream failure from the generator
func NewGenerationFailure(err error) *DomainError {
	return NewCodedError(ErrorTypeExternal, CodeGenerationFailure, "generation failed", err)
}

// NewRetrievalUnavailable wraps an embedding or similarity-search failure
func NewRetrievalUnavailable(err error) *DomainError {
	return NewCodedError(ErrorTypeUnavailable, CodeRetrievalUnavailable, "similarity search unavailable", err)
}

// NewDimensionMismatch reports an embedding whose length differs from the collection
func NewDimensionMismatch(want, got int) *DomainError {
	return NewCodedError(ErrorTypeInternal, CodeDimensionMismatch,
		fmt.Sprintf("expected %d dimensions, got %d", want, got), nil).
		WithDetail("expected", want).
		WithDetail("actual", got)
}

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsRefusedError checks if an error is a refusal
func IsRefusedError(err error) bool {
	return GetErrorType(err) == ErrorTypeRefused
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsUnavailableError checks if an error is an unavailable backend error
func IsUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnavailable
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the code of a domain error, or empty string
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
