package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RootNotFound indicates the requested position did not resolve to a symbol
	RootNotFound ErrorCode = "ROOT_NOT_FOUND"
	// IndexUnavailable indicates the symbol index could not be reached or loaded
	IndexUnavailable ErrorCode = "INDEX_UNAVAILABLE"
	// InvalidDepthOrBudget indicates non-positive depth, count, or page parameters
	InvalidDepthOrBudget ErrorCode = "INVALID_DEPTH_OR_BUDGET"
	// OverflowRecordNotFound indicates an unknown or expired overflow id, or an
	// out-of-range page
	OverflowRecordNotFound ErrorCode = "OVERFLOW_RECORD_NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// NavError represents a navigation failure with a stable code, a message,
// and recovery hints surfaced to the caller
type NavError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Hints   []string    `json:"hints,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a NavError with the default hints for its code
func New(code ErrorCode, message string, cause error) *NavError {
	return &NavError{
		Code:    code,
		Message: message,
		Hints:   HintsFor(code),
		cause:   cause,
	}
}

// Error implements the error interface
func (e *NavError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *NavError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *NavError) WithDetails(details interface{}) *NavError {
	e.Details = details
	return e
}

// WithHints replaces the default hints
func (e *NavError) WithHints(hints ...string) *NavError {
	e.Hints = hints
	return e
}

// ErrorHints maps error codes to short recovery hints. The core never
// retries on its own; hints tell the caller what a retry needs.
var ErrorHints = map[ErrorCode][]string{
	RootNotFound: {
		"check that file, line and column point at an identifier",
		"re-run the indexer if the file changed since the last index",
	},
	IndexUnavailable: {
		"run 'codenav status' to check the index path and freshness",
		"generate the SCIP index for this project, then retry",
	},
	InvalidDepthOrBudget: {
		"depth, max results and page numbers must be positive",
		"depth is clamped to at most 4; request 1-4",
	},
	OverflowRecordNotFound: {
		"overflow records expire; re-run the original query for a fresh id",
		"check the page number against the pageCount in the original response",
	},
}

// HintsFor returns the default recovery hints for an error code
func HintsFor(code ErrorCode) []string {
	if hints, ok := ErrorHints[code]; ok {
		return hints
	}
	return nil
}
