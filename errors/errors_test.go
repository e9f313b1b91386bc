package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNew_RetryableFromCode(t *testing.T) {
	if !New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout).Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if New(ErrCodeNotFound, "missing", http.StatusNotFound).Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_Error(t *testing.T) {
	e := New(ErrCodeNotFound, "missing", http.StatusNotFound)
	if got := e.Error(); got != "NOT_FOUND: missing" {
		t.Errorf("got %q", got)
	}

	cause := fmt.Errorf("boom")
	e.WithCause(cause)
	if got := e.Error(); got != "NOT_FOUND: missing (cause: boom)" {
		t.Errorf("got %q", got)
	}
	if !stderrors.Is(e, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestUpstream_Status(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeUnprocessable, http.StatusUnprocessableEntity},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeUnauthorized, http.StatusBadGateway},
		{ErrCodeForbidden, http.StatusBadGateway},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeExternalService, http.StatusBadGateway},
	}
	for _, tt := range tests {
		e := Upstream(tt.code, "payments", "upstream failed")
		if e.HTTPStatus != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.code, tt.want, e.HTTPStatus)
		}
		if e.Details["service"] != "payments" {
			t.Errorf("%s: expected service detail, got %v", tt.code, e.Details)
		}
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("call: %w", Validation("bad"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError")
	}
	if appErr.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}

	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("expected plain error not to be an AppError")
	}
}
