package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/httppipe/logger"
	"github.com/kbukum/httppipe/resilience"
)

// Transport performs the network call for a prepared request.
type Transport interface {
	Send(ctx context.Context, req *Request, timeout time.Duration) (*RawResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request, timeout time.Duration) (*RawResponse, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *Request, timeout time.Duration) (*RawResponse, error) {
	return f(ctx, req, timeout)
}

// RawResponse is what the transport received.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// errUpstreamStatus marks 5xx responses as failures for the circuit breaker.
var errUpstreamStatus = errors.New("httpclient: upstream 5xx")

// statusRetryError carries a response whose status is configured for retry.
type statusRetryError struct {
	raw *RawResponse
}

func (e *statusRetryError) Error() string {
	return fmt.Sprintf("httpclient: retryable status %d", e.raw.StatusCode)
}

// TransportOption configures NewHTTPTransport.
type TransportOption func(*transportOptions)

type transportOptions struct {
	roundTripper http.RoundTripper
	log          *logger.Logger
}

// WithRoundTripper replaces the base round tripper. TLS settings from the
// config only apply to the default one.
func WithRoundTripper(rt http.RoundTripper) TransportOption {
	return func(o *transportOptions) { o.roundTripper = rt }
}

// WithTransportLogger sets the transport logger.
func WithTransportLogger(l *logger.Logger) TransportOption {
	return func(o *transportOptions) { o.log = l }
}

// HTTPTransport sends requests with net/http and applies the resilience
// settings of a Config.
type HTTPTransport struct {
	client        *http.Client
	retry         *resilience.RetryConfig
	retryStatuses map[int]bool
	breaker       *resilience.CircuitBreaker
	limiter       *resilience.RateLimiter
	bulkhead      *resilience.Bulkhead
	log           *logger.Logger
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport builds a transport from cfg. Call cfg.ApplyDefaults first
// or go through New, which does.
func NewHTTPTransport(cfg Config, opts ...TransportOption) (*HTTPTransport, error) {
	o := transportOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("httpclient").WithFields(logger.Fields(logger.FieldService, cfg.Name))
	}

	base := o.roundTripper
	if base == nil {
		ht := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLS.IsEnabled() {
			tlsCfg, err := cfg.TLS.Build()
			if err != nil {
				return nil, err
			}
			ht.TLSClientConfig = tlsCfg
		}
		base = ht
	}
	if cfg.Tracing {
		base = otelhttp.NewTransport(base)
	}

	client := &http.Client{Transport: base}
	if cfg.Transport.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		client.Jar = jar
	}

	t := &HTTPTransport{client: client, log: o.log}
	tc := cfg.Transport
	if tc.Retry != nil {
		retry := *tc.Retry
		t.retry = &retry
		statuses := tc.RetryStatuses
		if statuses == nil {
			statuses = DefaultRetryStatuses
		}
		t.retryStatuses = make(map[int]bool, len(statuses))
		for _, s := range statuses {
			t.retryStatuses[s] = true
		}
	}
	if tc.CircuitBreaker != nil {
		t.breaker = resilience.NewCircuitBreaker(*tc.CircuitBreaker)
	}
	if tc.RateLimit != nil {
		t.limiter = resilience.NewRateLimiter(*tc.RateLimit)
	}
	if tc.Bulkhead != nil {
		t.bulkhead = resilience.NewBulkhead(*tc.Bulkhead)
	}
	return t, nil
}

// Send performs the request. When retry is configured, failed attempts and
// retryable statuses are retried; once attempts run out the last response
// is returned as a normal response.
func (t *HTTPTransport) Send(ctx context.Context, req *Request, timeout time.Duration) (*RawResponse, error) {
	if req.Auth != nil {
		req = req.clone()
		if err := req.Auth.Apply(req); err != nil {
			return nil, err
		}
	}

	body, contentType, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	if t.retry == nil {
		return t.attempt(ctx, req, body, contentType, timeout)
	}

	cfg := *t.retry
	cfg.RetryIf = t.shouldRetry
	cfg.DelayHint = retryDelayHint
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		t.log.Debug("retrying request", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldURL, req.URL,
			"attempt", attempt,
			"backoff", backoff.String(),
			logger.FieldError, err.Error(),
		))
	}

	raw, err := resilience.Retry(ctx, cfg, func() (*RawResponse, error) {
		return t.attempt(ctx, req, body, contentType, timeout)
	})
	var sre *statusRetryError
	if errors.As(err, &sre) {
		return sre.raw, nil
	}
	return raw, err
}

func (t *HTTPTransport) shouldRetry(err error) bool {
	var sre *statusRetryError
	if errors.As(err, &sre) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrBulkheadFull) {
		return false
	}
	return resilience.DefaultRetryIf(err)
}

func retryDelayHint(err error) (time.Duration, bool) {
	var sre *statusRetryError
	if errors.As(err, &sre) {
		return parseRetryAfter(sre.raw.Headers, time.Now())
	}
	return 0, false
}

// attempt runs one call through the rate limiter, bulkhead and circuit breaker.
func (t *HTTPTransport) attempt(ctx context.Context, req *Request, body []byte, contentType string, timeout time.Duration) (*RawResponse, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var raw *RawResponse
	call := func() error {
		var err error
		raw, err = t.roundTrip(ctx, req, body, contentType, timeout)
		if err == nil && raw.StatusCode >= http.StatusInternalServerError {
			return errUpstreamStatus
		}
		return err
	}
	if t.breaker != nil {
		inner := call
		call = func() error { return t.breaker.Execute(inner) }
	}
	if t.bulkhead != nil {
		inner := call
		call = func() error { return t.bulkhead.Execute(ctx, inner) }
	}

	if err := call(); err != nil && !errors.Is(err, errUpstreamStatus) {
		return nil, err
	}
	if t.retryStatuses[raw.StatusCode] {
		return raw, &statusRetryError{raw: raw}
	}
	return raw, nil
}

func (t *HTTPTransport) roundTrip(ctx context.Context, req *Request, body []byte, contentType string, timeout time.Duration) (*RawResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if contentType != "" && httpReq.Header.Get(HeaderContentType) == "" {
		httpReq.Header.Set(HeaderContentType, contentType)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read response body: %w", err)
	}

	headers := resp.Header
	if strings.EqualFold(headers.Get("Content-Encoding"), "gzip") && len(data) > 0 {
		data, err = gunzip(data)
		if err != nil {
			return nil, err
		}
		headers = headers.Clone()
		headers.Del("Content-Encoding")
		headers.Del("Content-Length")
	}

	return &RawResponse{StatusCode: resp.StatusCode, Headers: headers, Body: data}, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("httpclient: gzip body: %w", err)
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("httpclient: gzip body: %w", err)
	}
	return out, nil
}

// CircuitState returns the breaker state, or StateClosed when no breaker is configured.
func (t *HTTPTransport) CircuitState() resilience.State {
	if t.breaker == nil {
		return resilience.StateClosed
	}
	return t.breaker.State()
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}
