// Package errors provides unified error handling for the service.
// It implements structured error types with error codes and HTTP status
// mapping, following RFC 7807.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code, so a freshly
// built error matches a package-level sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// RateLimited creates a new AppError for too many requests.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please wait a moment and try again.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// AuthenticationInvalid creates the single error returned for every rejected credential.
func AuthenticationInvalid() *AppError {
	return &AppError{
		Code: ErrCodeAuthenticationInvalid, Message: "Authentication invalid",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// UnknownOperation creates a new AppError for an operation a capability does not declare.
func UnknownOperation(capability, operation string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownOperation, Message: fmt.Sprintf("Unknown operation %q for %s.", operation, capability),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"capability": capability, "operation": operation},
	}
}

// ScopeNotComposed creates a new AppError for a capability requested outside a composed scope.
func ScopeNotComposed(capability string) *AppError {
	e := &AppError{
		Code: ErrCodeScopeNotComposed, Message: "No state scope is composed for this request.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false,
	}
	if capability != "" {
		e.Details = map[string]any{"capability": capability}
	}
	return e
}

// CapabilityMismatch creates a new AppError for a capability requested with the wrong value type.
func CapabilityMismatch(capability string, want, got any) *AppError {
	return &AppError{
		Code:       ErrCodeCapabilityMismatch,
		Message:    fmt.Sprintf("Capability %s holds %T, requested %T.", capability, got, want),
		HTTPStatus: http.StatusInternalServerError,
		Retryable:  false,
		Details:    map[string]any{"capability": capability},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
