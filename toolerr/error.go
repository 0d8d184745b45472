package toolerr

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error codes used across transports for consistent error reporting.
const (
	// ErrCodeInvalidInput indicates the arguments failed schema validation
	ErrCodeInvalidInput = "INVALID_INPUT"

	// ErrCodeExecutionFailed indicates the tool handler returned an error
	ErrCodeExecutionFailed = "EXECUTION_FAILED"

	// ErrCodeMalformedRequest indicates the request envelope itself could not be decoded
	ErrCodeMalformedRequest = "MALFORMED_REQUEST"

	// ErrCodeTimeout indicates an operation timed out
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeDependencyMissing indicates an optional backend (Redis, etcd) is unreachable
	ErrCodeDependencyMissing = "DEPENDENCY_MISSING"
)

// Error is a structured error type for tool operations.
// It provides context about which tool and operation failed,
// includes a standard error code, and can wrap underlying errors.
type Error struct {
	// Tool is the name of the tool that generated the error
	Tool string `json:"tool"`

	// Operation is the specific operation that failed (e.g. "validate", "execute")
	Operation string `json:"operation"`

	// Code is a standard error code constant
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Cause is the underlying error that caused this error
	Cause error `json:"-"`

	// Class categorizes the error by its nature
	Class ErrorClass `json:"class,omitempty"`

	// Hints provides recovery suggestions for this error
	Hints []RecoveryHint `json:"hints,omitempty"`
}

// New creates a new structured tool error. The class defaults from the code.
//
// Example:
//
//	err := toolerr.New("fetch", "validate", toolerr.ErrCodeInvalidInput, "required field ids is missing")
func New(tool, operation, code, message string) *Error {
	return &Error{
		Tool:      tool,
		Operation: operation,
		Code:      code,
		Message:   message,
		Class:     DefaultClassForCode(code),
	}
}

// InvalidInput builds the error returned when arguments fail validation.
func InvalidInput(tool string, cause error) *Error {
	return New(tool, "validate", ErrCodeInvalidInput, "invalid arguments for "+tool).
		WithCause(cause).
		WithHints(RecoveryHint{
			Strategy: StrategyModifyParams,
			Reason:   "arguments must match the tool's input_schema",
			Priority: 1,
		})
}

// WithCause adds an underlying error to this error.
// This method returns the same error instance for method chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithClass overrides the error classification.
func (e *Error) WithClass(class ErrorClass) *Error {
	e.Class = class
	return e
}

// WithHints appends recovery suggestions to this error.
func (e *Error) WithHints(hints ...RecoveryHint) *Error {
	e.Hints = append(e.Hints, hints...)
	return e
}

// Error implements the error interface.
// INVALID_INPUT errors format as "message: cause" since callers surface them
// verbatim; every other code is prefixed "tool [operation/code]".
//
// Examples:
//   - "invalid arguments for fetch: required field ids is missing"
//   - "tips_provider [execute/EXECUTION_FAILED]: handler failed: boom"
func (e *Error) Error() string {
	var parts []string

	if e.Code != ErrCodeInvalidInput {
		parts = append(parts, fmt.Sprintf("%s [%s/%s]", e.Tool, e.Operation, e.Code))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause error.
// This enables errors.Is() and errors.As() to work with wrapped errors.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// Two Error values are considered equal if they have the same Tool, Operation, and Code.
// The ErrInvalidInput sentinel matches any INVALID_INPUT error.
func (e *Error) Is(target error) bool {
	if target == ErrInvalidInput {
		return e.Code == ErrCodeInvalidInput
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Tool == t.Tool && e.Operation == t.Operation && e.Code == t.Code
}

// IsRetryable reports whether the first *Error in err's chain has a class
// worth retrying unchanged. Errors outside this package are not retryable.
func IsRetryable(err error) bool {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.Class.IsRetryable()
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.Code
	}
	return ""
}

// Sentinel errors for common scenarios

var (
	// ErrInvalidInput is matched by errors.Is for every INVALID_INPUT error
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout is returned when an operation times out
	ErrTimeout = errors.New("operation timed out")
)
