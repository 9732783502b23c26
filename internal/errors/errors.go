package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an Insight error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrInvalidCode       ErrorCode = "INVALID_CODE"       // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrFileNotFound      ErrorCode = "FILE_NOT_FOUND"     // 404
	ErrCancelled         ErrorCode = "CANCELLED"          // 499
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrAllocationFailure ErrorCode = "ALLOCATION_FAILURE" // 503
)

// InsightError represents a structured error with code, status, and details.
type InsightError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *InsightError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *InsightError carrying the same code,
// so callers can write errors.Is(err, ErrNotFoundSentinel).
func (e *InsightError) Is(target error) bool {
	t, ok := target.(*InsightError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons. Only the Code field is compared.
var (
	ErrNotFoundSentinel          = &InsightError{Code: ErrNotFound}
	ErrAllocationFailureSentinel = &InsightError{Code: ErrAllocationFailure}
	ErrInvalidCodeSentinel       = &InsightError{Code: ErrInvalidCode}
)

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *InsightError {
	return &InsightError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidCode creates a 400 error for text that is not an 8-digit hex alert code.
func NewInvalidCode(input string) *InsightError {
	return &InsightError{
		Code:    ErrInvalidCode,
		Status:  400,
		Message: fmt.Sprintf("invalid alert code %q: must be exactly 8 hexadecimal digits (e.g. 8000000B or 0x8000000B)", input),
		Details: map[string]any{"input": input},
	}
}

// NewNotFound creates a 404 error for a code that has no knowledge base entry.
func NewNotFound(code uint32) *InsightError {
	return &InsightError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("unknown alert code: 0x%08X", code),
		Details: map[string]any{"code": fmt.Sprintf("0x%08X", code)},
	}
}

// NewFileNotFound creates a 404 error for a missing file.
func NewFileNotFound(path string) *InsightError {
	return &InsightError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewAllocationFailure creates a 503 error when a lookup result or its hint
// cannot be reserved against the knowledge base's budget.
func NewAllocationFailure(what string, limit int64) *InsightError {
	return &InsightError{
		Code:    ErrAllocationFailure,
		Status:  503,
		Message: fmt.Sprintf("cannot allocate %s: budget of %d exhausted", what, limit),
		Details: map[string]any{"resource": what, "limit": limit},
	}
}

// NewCancelled creates a 499 error for an operation abandoned because its context ended.
func NewCancelled(op string) *InsightError {
	return &InsightError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *InsightError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &InsightError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) an InsightError with the given code.
func Is(err error, code ErrorCode) bool {
	var iErr *InsightError
	if stderrors.As(err, &iErr) {
		return iErr.Code == code
	}
	return false
}

// As extracts the InsightError from err, if any.
func As(err error) (*InsightError, bool) {
	var iErr *InsightError
	ok := stderrors.As(err, &iErr)
	return iErr, ok
}
