package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/kbukum/httppipe/errors"
	"github.com/kbukum/httppipe/structured"
)

// ErrorKind classifies a non-2xx response.
type ErrorKind int

const (
	// KindGeneric is any non-2xx status outside the named table.
	KindGeneric ErrorKind = iota
	// KindBadRequest is HTTP 400.
	KindBadRequest
	// KindAuthentication is HTTP 401.
	KindAuthentication
	// KindAuthorization is HTTP 403.
	KindAuthorization
	// KindResourceNotFound is HTTP 404.
	KindResourceNotFound
	// KindUnprocessableEntity is HTTP 422.
	KindUnprocessableEntity
	// KindUpgradeRequired is HTTP 426.
	KindUpgradeRequired
	// KindRateLimit is HTTP 429.
	KindRateLimit
	// KindInternalServer is HTTP 500.
	KindInternalServer
	// KindDownForMaintenance is HTTP 503.
	KindDownForMaintenance
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindBadRequest:
		return "bad_request"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindUnprocessableEntity:
		return "unprocessable_entity"
	case KindUpgradeRequired:
		return "upgrade_required"
	case KindRateLimit:
		return "rate_limit"
	case KindInternalServer:
		return "internal_server"
	case KindDownForMaintenance:
		return "down_for_maintenance"
	default:
		return "unknown"
	}
}

var statusKinds = map[int]ErrorKind{
	http.StatusBadRequest:          KindBadRequest,
	http.StatusUnauthorized:        KindAuthentication,
	http.StatusForbidden:           KindAuthorization,
	http.StatusNotFound:            KindResourceNotFound,
	http.StatusUnprocessableEntity: KindUnprocessableEntity,
	http.StatusUpgradeRequired:     KindUpgradeRequired,
	http.StatusTooManyRequests:     KindRateLimit,
	http.StatusInternalServerError: KindInternalServer,
	http.StatusServiceUnavailable:  KindDownForMaintenance,
}

// KindForStatus maps a non-2xx status to its kind by exact match.
func KindForStatus(status int) ErrorKind {
	if k, ok := statusKinds[status]; ok {
		return k
	}
	return KindGeneric
}

var kindCodes = map[ErrorKind]apperrors.ErrorCode{
	KindGeneric:             apperrors.ErrCodeExternalService,
	KindBadRequest:          apperrors.ErrCodeInvalidInput,
	KindAuthentication:      apperrors.ErrCodeUnauthorized,
	KindAuthorization:       apperrors.ErrCodeForbidden,
	KindResourceNotFound:    apperrors.ErrCodeNotFound,
	KindUnprocessableEntity: apperrors.ErrCodeUnprocessable,
	KindUpgradeRequired:     apperrors.ErrCodeUpgradeRequired,
	KindRateLimit:           apperrors.ErrCodeRateLimited,
	KindInternalServer:      apperrors.ErrCodeExternalService,
	KindDownForMaintenance:  apperrors.ErrCodeServiceUnavailable,
}

// APIError is a non-2xx response.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Headers    http.Header
	// Data is the decoded body, the raw text when it is not JSON, or null
	// when empty. Generic errors always carry the raw text.
	Data structured.Value
	// Body is the body as received.
	Body []byte
}

// Error returns the raw body text for generic errors and a summary otherwise.
func (e *APIError) Error() string {
	if e.Kind == KindGeneric {
		return string(e.Body)
	}
	return fmt.Sprintf("httpclient: %s (HTTP %d)", e.Kind, e.StatusCode)
}

// Retryable reports whether the status usually clears on its own.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindInternalServer, KindDownForMaintenance:
		return true
	}
	return false
}

// RetryAfter returns the delay requested by a Retry-After header.
func (e *APIError) RetryAfter() (time.Duration, bool) {
	return parseRetryAfter(e.Headers, time.Now())
}

// AppError maps the failure onto the shared application error taxonomy.
func (e *APIError) AppError(service string) *apperrors.AppError {
	msg := fmt.Sprintf("upstream responded with HTTP %d", e.StatusCode)
	return apperrors.Upstream(kindCodes[e.Kind], service, msg).
		WithCause(e).
		WithDetail("status_code", e.StatusCode).
		WithDetail("kind", e.Kind.String())
}

// TransportError wraps a failure of the transport call itself.
type TransportError struct {
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return "httpclient: transport timeout: " + e.Err.Error()
	}
	return "httpclient: transport: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// AppError maps the failure onto the shared application error taxonomy.
func (e *TransportError) AppError(service string) *apperrors.AppError {
	code := apperrors.ErrCodeConnectionFailed
	if e.Timeout {
		code = apperrors.ErrCodeTimeout
	}
	return apperrors.Upstream(code, service, e.Err.Error()).WithCause(e)
}

// newTransportError wraps err unless it already is a *TransportError.
func newTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Err: err, Timeout: isTimeout(err)}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// TypeConstraintError reports an invalid injector registration.
type TypeConstraintError struct {
	Value  any
	Reason string
}

func (e *TypeConstraintError) Error() string {
	return fmt.Sprintf("httpclient: invalid injector %T: %s", e.Value, e.Reason)
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsAPIError(err)
	return ok && e.Kind == kind
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var e *TransportError
	return errors.As(err, &e) && e.Timeout
}

// IsRetryable reports whether err is worth retrying: transport failures
// other than cancellation, and retryable API errors.
func IsRetryable(err error) bool {
	if e, ok := AsAPIError(err); ok {
		return e.Retryable()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return !errors.Is(te.Err, context.Canceled)
	}
	return false
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0), true
	}
	return 0, false
}
