package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/httppipe/errors"
)

type endpoint struct {
	BaseURL string `mapstructure:"base_url" validate:"omitempty,httpurl"`
	Mode    string `mapstructure:"mode" validate:"omitempty,oneof=header query"`
	Retries int    `mapstructure:"retries" validate:"gte=0,lte=10"`
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(endpoint{BaseURL: "https://api.example.com", Mode: "header", Retries: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(endpoint{}); err != nil {
		t.Fatalf("expected empty optional fields to pass, got %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	err := Validate(endpoint{BaseURL: "/relative", Mode: "cookie", Retries: 11})
	if err == nil {
		t.Fatal("expected error")
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	for _, want := range []string{"base_url: must be an absolute http or https URL", "mode: must be one of", "retries: must be at most 10"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("expected message to contain %q, got %q", want, appErr.Message)
		}
	}

	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %v", appErr.Details["fields"])
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"BaseURL":  "base_u_r_l",
		"Timeout":  "timeout",
		"userName": "user_name",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
