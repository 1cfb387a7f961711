// Package errors provides standardized error types for query orchestration.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the orchestration fault taxonomy.
const (
	// Transient engine faults, recovered locally via retry with backoff.
	CodeThrottled       = "THROTTLED"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeNetwork         = "NETWORK_ERROR"
	CodeUnknownEndpoint = "UNKNOWN_ENDPOINT"

	// Fatal faults, surfaced immediately.
	CodeSubmissionFailed = "SUBMISSION_FAILED"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeMalformedValue   = "MALFORMED_VALUE"
	CodeConfiguration    = "CONFIGURATION_ERROR"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// QueryError represents an orchestration error with code, message, and optional details.
type QueryError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with one detail added. The
// receiver is left untouched so the shared sentinels stay immutable.
func (e *QueryError) WithDetail(key string, value interface{}) *QueryError {
	out := &QueryError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: make(map[string]interface{}, len(e.Details)+1),
	}
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return out
}

// Common errors
var (
	ErrMissingEngine = &QueryError{Code: CodeConfiguration, Message: "query engine client is required"}
	ErrMissingStore  = &QueryError{Code: CodeConfiguration, Message: "object store client is required"}
	ErrInvalidQuery  = &QueryError{Code: CodeInvalidRequest, Message: "invalid query"}
	ErrEmptyLocation = &QueryError{Code: CodeInvalidRequest, Message: "result output location is empty"}
)

// New creates a new QueryError with the given code and message.
func New(code, message string) *QueryError {
	return &QueryError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new QueryError with a formatted message.
func Newf(code, format string, args ...interface{}) *QueryError {
	return &QueryError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a QueryError.
func Wrap(err error, code, message string) *QueryError {
	if err == nil {
		return nil
	}
	return &QueryError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *QueryError {
	if err == nil {
		return nil
	}
	return &QueryError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// QueryFailed builds the terminal failure error carrying the engine's
// stated reason verbatim.
func QueryFailed(reason string) *QueryError {
	return &QueryError{Code: CodeQueryFailed, Message: reason}
}

// IsTransient reports whether an error is one of the transient engine
// faults: throttling, too-many-requests, networking, unknown endpoint.
// All other faults are fatal and must propagate immediately.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case CodeThrottled, CodeTooManyRequests, CodeNetwork, CodeUnknownEndpoint:
		return true
	}
	return false
}

// IsQueryFailed checks if an error reports a FAILED execution.
func IsQueryFailed(err error) bool {
	return GetCode(err) == CodeQueryFailed
}

// IsMalformedValue checks if an error is a cell coercion failure.
func IsMalformedValue(err error) bool {
	return GetCode(err) == CodeMalformedValue
}

// IsConfiguration checks if an error is a construction-time configuration error.
func IsConfiguration(err error) bool {
	return GetCode(err) == CodeConfiguration
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr.Message
	}
	return err.Error()
}
