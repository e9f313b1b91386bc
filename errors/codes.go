package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable).
const (
	// ErrCodeServiceUnavailable indicates the upstream is down or in maintenance.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates the upstream could not be reached.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the upstream call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the upstream throttled the caller.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Request errors.
const (
	// ErrCodeInvalidInput indicates the upstream rejected the request payload.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnprocessable indicates the payload was well-formed but semantically rejected.
	ErrCodeUnprocessable ErrorCode = "UNPROCESSABLE"
	// ErrCodeNotFound indicates the upstream resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUpgradeRequired indicates the upstream requires a newer protocol or client.
	ErrCodeUpgradeRequired ErrorCode = "UPGRADE_REQUIRED"
)

// Authentication/Authorization errors.
const (
	// ErrCodeUnauthorized indicates credentials were missing or rejected.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates credentials lacked permission.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Internal errors.
const (
	// ErrCodeInternal indicates a local failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an unclassified upstream failure.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
