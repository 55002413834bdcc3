package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnknownOperation indicates an operation a state container does not declare.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"
)

// Authentication errors
const (
	// ErrCodeAuthenticationInvalid covers every rejected credential. Missing,
	// malformed and unverifiable tokens share this one code.
	ErrCodeAuthenticationInvalid ErrorCode = "AUTHENTICATION_INVALID"
)

// Wiring errors
const (
	// ErrCodeScopeNotComposed indicates a capability was requested outside a composed scope.
	ErrCodeScopeNotComposed ErrorCode = "SCOPE_NOT_COMPOSED"
	// ErrCodeCapabilityMismatch indicates a capability was requested with the wrong value type.
	ErrCodeCapabilityMismatch ErrorCode = "CAPABILITY_MISMATCH"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:     true,
	ErrCodeRateLimited: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
