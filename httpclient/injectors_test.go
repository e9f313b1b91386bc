package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func inject(t *testing.T, inj Injector, req *Request) {
	t.Helper()
	if err := inj.Inject(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBaseURLInjector(t *testing.T) {
	tests := []struct {
		base, url, want string
	}{
		{"https://api.example.com", "/v1/orders", "https://api.example.com/v1/orders"},
		{"https://api.example.com/", "v1/orders", "https://api.example.com/v1/orders"},
		{"https://api.example.com/", "//v1/orders", "https://api.example.com/v1/orders"},
		{"https://api.example.com", "https://other.example.com/x", "https://other.example.com/x"},
		{"https://api.example.com", "HTTP://other.example.com/x", "HTTP://other.example.com/x"},
		{"", "/v1/orders", "/v1/orders"},
	}
	for _, tt := range tests {
		req := NewRequest(http.MethodGet, tt.url)
		inject(t, BaseURLInjector(tt.base), req)
		if req.URL != tt.want {
			t.Errorf("base %q url %q: expected %q, got %q", tt.base, tt.url, tt.want, req.URL)
		}
	}
}

func TestJSONContentTypeInjector(t *testing.T) {
	req := NewRequest(http.MethodPost, "/", WithJSON(map[string]string{"a": "b"}), WithHeader("content-type", "text/plain"))
	inject(t, JSONContentTypeInjector(), req)
	if req.Header("Content-Type") != "application/json" {
		t.Errorf("expected application/json, got %q", req.Header("Content-Type"))
	}

	raw := NewRequest(http.MethodPost, "/", WithBody([]byte("x")))
	inject(t, JSONContentTypeInjector(), raw)
	if raw.HasHeader("Content-Type") {
		t.Error("expected no content type for raw body")
	}
}

func TestAcceptEncodingInjector(t *testing.T) {
	req := NewRequest(http.MethodGet, "/")
	inject(t, AcceptEncodingInjector(), req)
	if req.Headers.Get("Accept-Encoding") != "gzip" {
		t.Errorf("expected gzip, got %q", req.Headers.Get("Accept-Encoding"))
	}

	custom := NewRequest(http.MethodGet, "/")
	custom.Headers["accept-encoding"] = []string{"identity"}
	inject(t, AcceptEncodingInjector(), custom)
	if custom.Header("Accept-Encoding") != "identity" || len(custom.Headers) != 1 {
		t.Errorf("expected caller value to be kept, got %v", custom.Headers)
	}
}

func TestDefaultHeadersInjector(t *testing.T) {
	req := NewRequest(http.MethodGet, "/", WithHeader("X-Tenant", "caller"))
	inject(t, DefaultHeadersInjector(map[string]string{"x-tenant": "default", "X-Region": "eu"}), req)
	if req.Header("X-Tenant") != "caller" {
		t.Errorf("expected caller value, got %q", req.Header("X-Tenant"))
	}
	if req.Header("X-Region") != "eu" {
		t.Errorf("expected eu, got %q", req.Header("X-Region"))
	}
}

func TestDefaultInjector(t *testing.T) {
	req := NewRequest(http.MethodPost, "/v1/orders", WithJSON(map[string]int{"qty": 1}))
	inject(t, DefaultInjector("https://api.example.com", map[string]string{"X-Tenant": "acme"}), req)

	if req.URL != "https://api.example.com/v1/orders" {
		t.Errorf("unexpected url %q", req.URL)
	}
	if req.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("expected json content type, got %q", req.Headers.Get("Content-Type"))
	}
	if req.Headers.Get("Accept-Encoding") != "gzip" {
		t.Errorf("expected gzip, got %q", req.Headers.Get("Accept-Encoding"))
	}
	if req.Headers.Get("X-Tenant") != "acme" {
		t.Errorf("expected tenant header, got %q", req.Headers.Get("X-Tenant"))
	}
}

func TestAuthInjector_RequestAuthWins(t *testing.T) {
	inj := AuthInjector(BearerAuth("client"))

	req := NewRequest(http.MethodGet, "/")
	inject(t, inj, req)
	if req.Headers.Get("Authorization") != "Bearer client" {
		t.Errorf("expected client token, got %q", req.Headers.Get("Authorization"))
	}

	own := NewRequest(http.MethodGet, "/", WithAuth(BearerAuth("own")))
	inject(t, inj, own)
	if own.HasHeader("Authorization") {
		t.Error("expected request-level auth to be left for the transport")
	}
}

func TestTokenInjector(t *testing.T) {
	calls := 0
	src := TokenSourceFunc(func(context.Context) (string, error) {
		calls++
		return "fresh", nil
	})
	req := NewRequest(http.MethodGet, "/")
	inject(t, TokenInjector(src), req)
	if req.Headers.Get("Authorization") != "Bearer fresh" || calls != 1 {
		t.Errorf("expected fresh token from one call, got %q (%d calls)", req.Headers.Get("Authorization"), calls)
	}

	boom := errors.New("token endpoint down")
	failing := TokenInjector(TokenSourceFunc(func(context.Context) (string, error) { return "", boom }))
	if err := failing.Inject(context.Background(), req); err != boom {
		t.Errorf("expected source error unchanged, got %v", err)
	}

	empty := TokenInjector(TokenSourceFunc(func(context.Context) (string, error) { return "", nil }))
	if err := empty.Inject(context.Background(), req); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}
}

func TestRequestIDInjector(t *testing.T) {
	req := NewRequest(http.MethodGet, "/")
	inject(t, RequestIDInjector(), req)
	if _, err := uuid.Parse(req.Headers.Get(HeaderRequestID)); err != nil {
		t.Errorf("expected a uuid, got %q", req.Headers.Get(HeaderRequestID))
	}

	fromCtx := NewRequest(http.MethodGet, "/")
	ctx := ContextWithRequestID(context.Background(), "req-123")
	if err := RequestIDInjector().Inject(ctx, fromCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromCtx.Headers.Get(HeaderRequestID) != "req-123" {
		t.Errorf("expected req-123, got %q", fromCtx.Headers.Get(HeaderRequestID))
	}

	kept := NewRequest(http.MethodGet, "/", WithHeader("x-request-id", "mine"))
	inject(t, RequestIDInjector(), kept)
	if kept.Header(HeaderRequestID) != "mine" {
		t.Errorf("expected existing id to be kept, got %q", kept.Header(HeaderRequestID))
	}
}

func TestTraceInjector(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	req := &Request{Method: http.MethodGet, URL: "/"}
	if err := TraceInjector(propagation.TraceContext{}).Inject(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tp2 := req.Headers.Get("Traceparent")
	if !strings.Contains(tp2, span.SpanContext().TraceID().String()) {
		t.Errorf("expected traceparent with trace id, got %q", tp2)
	}
}

func TestJWTInjector(t *testing.T) {
	inj, err := JWTInjector(JWTConfig{
		Secret:   "s3cret",
		Issuer:   "billing",
		Subject:  "svc-billing",
		Audience: []string{"orders"},
		TTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := NewRequest(http.MethodGet, "/")
	inject(t, inj, req)

	raw, ok := strings.CutPrefix(req.Headers.Get("Authorization"), "Bearer ")
	if !ok {
		t.Fatalf("expected bearer token, got %q", req.Headers.Get("Authorization"))
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithIssuer("billing"), jwt.WithAudience("orders"), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Subject != "svc-billing" {
		t.Errorf("expected subject svc-billing, got %q", claims.Subject)
	}
	if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != time.Minute {
		t.Errorf("expected 1m ttl, got %v", ttl)
	}

	// Each request gets a fresh token.
	second := NewRequest(http.MethodGet, "/")
	inject(t, inj, second)
	if second.Headers.Get("Authorization") == req.Headers.Get("Authorization") {
		t.Error("expected a distinct token per request")
	}
}

func TestJWTInjector_InvalidConfig(t *testing.T) {
	if _, err := JWTInjector(JWTConfig{}); err == nil {
		t.Error("expected error without secret")
	}
	if _, err := JWTInjector(JWTConfig{Secret: "x", Method: "RS256"}); err == nil {
		t.Error("expected error for unsupported method")
	}
}
