package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/httppipe/logger"
	"github.com/kbukum/httppipe/resilience"
)

func newTestTransport(t *testing.T, cfg Config) *HTTPTransport {
	t.Helper()
	cfg.ApplyDefaults()
	tr, err := NewHTTPTransport(cfg, WithTransportLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tr
}

func fastRetry() *resilience.RetryConfig {
	return &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestHTTPTransport_SendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if r.Header.Get("X-Custom") != "1" {
			t.Errorf("expected X-Custom header, got %v", r.Header)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("X-Reply", "yes")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{})
	req := NewRequest(http.MethodPut, srv.URL+"/x", WithHeader("X-Custom", "1"), WithJSON(map[string]int{"a": 1}))
	raw, err := tr.Send(context.Background(), req, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.StatusCode != http.StatusAccepted || string(raw.Body) != "queued" || raw.Headers.Get("X-Reply") != "yes" {
		t.Errorf("unexpected response %+v", raw)
	}
}

func TestHTTPTransport_RequestAuthDoesNotMutateCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != "user" || p != "pass" {
			t.Errorf("expected basic auth, got %q %q %v", u, p, ok)
		}
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{})
	req := NewRequest(http.MethodGet, srv.URL, WithAuth(BasicAuth("user", "pass")))
	if _, err := tr.Send(context.Background(), req, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.HasHeader("Authorization") {
		t.Error("expected caller request to be untouched")
	}
}

func TestHTTPTransport_DecompressesGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(`{"Zipped":true}`))
	_ = zw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip accept-encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{})
	raw, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL, WithHeader("Accept-Encoding", "gzip")), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw.Body) != `{"Zipped":true}` {
		t.Errorf("expected decompressed body, got %q", raw.Body)
	}
	if raw.Headers.Get("Content-Encoding") != "" {
		t.Error("expected Content-Encoding to be dropped")
	}
}

func TestHTTPTransport_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Config{Timeout: 20 * time.Millisecond}, WithTransport(newTestTransport(t, Config{})))
	_, err := c.Execute(context.Background(), NewRequest(http.MethodGet, srv.URL))
	if !IsTimeout(err) {
		t.Errorf("expected transport timeout, got %v", err)
	}
}

func TestHTTPTransport_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, Config{}, WithTransport(newTestTransport(t, Config{})))
	_, err := c.Execute(context.Background(), NewRequest(http.MethodGet, url))
	if !IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestHTTPTransport_RetriesStatusesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{Retry: fastRetry()}})
	raw, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.StatusCode != 200 || calls.Load() != 3 {
		t.Errorf("expected success on third call, got %d after %d calls", raw.StatusCode, calls.Load())
	}
}

func TestHTTPTransport_RetryExhaustionReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"Retry-In":"later"}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{Retry: fastRetry()}})
	c := newTestClient(t, Config{}, WithTransport(tr))

	_, err := c.Execute(context.Background(), NewRequest(http.MethodGet, srv.URL))
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Kind != KindRateLimit {
		t.Fatalf("expected rate_limit APIError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if s, _ := apiErr.Data.Path("retry_in").Text(); s != "later" {
		t.Errorf("expected last body to be classified, got %v", apiErr.Data)
	}
}

func TestHTTPTransport_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{Retry: fastRetry()}})
	raw, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second)
	if err != nil || raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %v %v", raw, err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestHTTPTransport_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxCalls: 1},
	}})

	for i := 0; i < 2; i++ {
		raw, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second)
		if err != nil || raw.StatusCode != 500 {
			t.Fatalf("call %d: expected 500 response, got %v %v", i, raw, err)
		}
	}
	if tr.CircuitState() != resilience.StateOpen {
		t.Fatalf("expected open circuit, got %s", tr.CircuitState())
	}

	_, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected open circuit to skip the call, got %d calls", calls.Load())
	}
}

func TestHTTPTransport_BulkheadRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{
		Bulkhead: &resilience.BulkheadConfig{MaxConcurrent: 1},
	}})

	done := make(chan error, 1)
	go func() {
		_, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second)
		done <- err
	}()
	<-started

	_, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second)
	if !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("unexpected error from first call: %v", err)
	}
}

func TestHTTPTransport_RateLimitWaits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{
		RateLimit: &resilience.RateLimiterConfig{Rate: 1, Burst: 1},
	}})
	if _, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := tr.Send(ctx, NewRequest(http.MethodGet, srv.URL), time.Second); err == nil {
		t.Error("expected second call to be throttled past the deadline")
	}
}

func TestHTTPTransport_Cookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	tr := newTestTransport(t, Config{Transport: TransportConfig{Cookies: true}})
	if _, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL+"/login"), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := tr.Send(context.Background(), NewRequest(http.MethodGet, srv.URL+"/me"), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.StatusCode != http.StatusOK {
		t.Errorf("expected cookie to be sent back, got %d", raw.StatusCode)
	}
}

func TestHTTPTransport_TracingWrapsRoundTripper(t *testing.T) {
	var saw atomic.Bool
	base := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		saw.Store(true)
		return &http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(nil)), Request: r}, nil
	})

	cfg := Config{Tracing: true}
	cfg.ApplyDefaults()
	tr, err := NewHTTPTransport(cfg, WithRoundTripper(base), WithTransportLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tr.client.Transport.(roundTripperFunc); ok {
		t.Error("expected the round tripper to be instrumented")
	}
	raw, err := tr.Send(context.Background(), NewRequest(http.MethodGet, "http://example.invalid/x"), time.Second)
	if err != nil || raw.StatusCode != 200 || !saw.Load() {
		t.Errorf("expected base round tripper to serve the call, got %v %v", raw, err)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
