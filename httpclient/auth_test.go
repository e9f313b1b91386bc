package httpclient

import (
	"encoding/base64"
	"errors"
	"net/http"
	"testing"
)

func TestAuthConfig_Apply(t *testing.T) {
	tests := []struct {
		name   string
		auth   *AuthConfig
		header string
		want   string
	}{
		{"bearer", BearerAuth("tok"), "Authorization", "Bearer tok"},
		{"basic", BasicAuth("user", "pass"), "Authorization", "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))},
		{"api key", APIKeyAuth("k"), "X-API-Key", "k"},
		{"api key custom header", APIKeyAuthHeader("k", "X-Custom-Key"), "X-Custom-Key", "k"},
		{"api key default name", &AuthConfig{Type: AuthAPIKey, Key: "k"}, "X-API-Key", "k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(http.MethodGet, "https://example.com/x")
			if err := tt.auth.Apply(req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := req.Headers.Get(tt.header); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAuthConfig_APIKeyQuery(t *testing.T) {
	req := NewRequest(http.MethodGet, "https://example.com/x?a=1")
	if err := APIKeyAuthQuery("k", "api_key").Apply(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL != "https://example.com/x?a=1&api_key=k" {
		t.Errorf("unexpected url %q", req.URL)
	}
}

func TestAuthConfig_Custom(t *testing.T) {
	boom := errors.New("boom")
	auth := CustomAuth(func(r *Request) error {
		r.SetHeader("X-Signed", "yes")
		return nil
	})
	req := NewRequest(http.MethodGet, "/x")
	if err := auth.Apply(req); err != nil || req.Headers.Get("X-Signed") != "yes" {
		t.Errorf("expected custom header, err=%v", err)
	}

	failing := CustomAuth(func(*Request) error { return boom })
	if err := failing.Apply(req); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestAuthConfig_DisabledAndUnknown(t *testing.T) {
	req := NewRequest(http.MethodGet, "/x")
	var nilAuth *AuthConfig
	if err := nilAuth.Apply(req); err != nil || len(req.Headers) != 0 {
		t.Errorf("expected nil auth to be a no-op, err=%v", err)
	}
	if err := (&AuthConfig{Type: "kerberos"}).Apply(req); err == nil {
		t.Error("expected error for unknown auth type")
	}
}
