package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/httppipe/logger"
	"github.com/kbukum/httppipe/observability"
)

// Defaults supplies the per-execution timeout and User-Agent. Override it
// with WithDefaults to change either without touching the pipeline.
type Defaults interface {
	Timeout() time.Duration
	UserAgent() string
}

type configDefaults struct {
	timeout   time.Duration
	userAgent string
}

func (d configDefaults) Timeout() time.Duration { return d.timeout }
func (d configDefaults) UserAgent() string      { return d.userAgent }

// Option configures a Client.
type Option func(*options)

type options struct {
	transport      Transport
	defaults       Defaults
	injectors      []Injector
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	log            *logger.Logger
}

// WithTransport replaces the default HTTPTransport.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithDefaults replaces the timeout and User-Agent source.
func WithDefaults(d Defaults) Option {
	return func(o *options) { o.defaults = d }
}

// WithInjector registers inj after any injectors the constructor adds.
func WithInjector(inj Injector) Option {
	return func(o *options) { o.injectors = append(o.injectors, inj) }
}

// WithTracerProvider sets the provider for execution spans. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the provider for client metrics. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Client runs requests through its injector chain and transport.
// It is safe for concurrent use.
type Client struct {
	name      string
	chain     *Chain
	transport Transport
	defaults  Defaults
	tracer    trace.Tracer
	metrics   *observability.ClientMetrics
	log       *logger.Logger
}

// New creates a client whose chain holds only the injectors passed with
// WithInjector.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newClient(cfg, nil, opts)
}

// NewAPIClient creates a client for one upstream API. The chain runs auth
// first (the given injector, or one derived from cfg.Auth or cfg.JWT), then
// DefaultInjector for cfg.BaseURL and cfg.Headers, then request-ID and
// trace propagation when enabled, then any WithInjector options.
func NewAPIClient(cfg Config, auth Injector, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var prefix []Injector
	switch {
	case auth != nil:
		prefix = append(prefix, auth)
	case cfg.Auth.IsEnabled():
		prefix = append(prefix, AuthInjector(cfg.Auth))
	case cfg.JWT.IsEnabled():
		jwtInj, err := JWTInjector(*cfg.JWT)
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, jwtInj)
	}
	prefix = append(prefix, DefaultInjector(cfg.BaseURL, cfg.Headers))
	if cfg.RequestID {
		prefix = append(prefix, RequestIDInjector())
	}
	if cfg.Tracing {
		prefix = append(prefix, TraceInjector(nil))
	}
	return newClient(cfg, prefix, opts)
}

func newClient(cfg Config, prefix []Injector, opts []Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("httpclient").WithFields(logger.Fields(logger.FieldService, cfg.Name))
	}

	chain, err := NewChain(append(prefix, o.injectors...)...)
	if err != nil {
		return nil, err
	}

	if o.transport == nil {
		t, err := NewHTTPTransport(cfg, WithTransportLogger(o.log))
		if err != nil {
			return nil, err
		}
		o.transport = t
	}
	if o.defaults == nil {
		o.defaults = configDefaults{timeout: cfg.Timeout, userAgent: cfg.UserAgent}
	}

	metrics, err := observability.NewClientMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	return &Client{
		name:      cfg.Name,
		chain:     chain,
		transport: o.transport,
		defaults:  o.defaults,
		tracer:    observability.Tracer(o.tracerProvider),
		metrics:   metrics,
		log:       o.log,
	}, nil
}

// Name returns the configured client name.
func (c *Client) Name() string { return c.name }

// Timeout returns the timeout handed to the transport.
func (c *Client) Timeout() time.Duration { return c.defaults.Timeout() }

// UserAgent returns the User-Agent set on requests without one.
func (c *Client) UserAgent() string { return c.defaults.UserAgent() }

// Register appends an injector. Registration is serialized against running
// executions; an execution uses the chain as it was when it started.
func (c *Client) Register(inj Injector) error {
	return c.chain.Register(inj)
}

// Transport returns the transport in use.
func (c *Client) Transport() Transport { return c.transport }

// Execute runs req through the injector chain, sends it and classifies the
// response. Failures are a *TransportError, an *APIError, the unchanged
// error of the first failing injector, or a request error (ErrConflictingBody,
// an unencodable JSON body, failing request-level credentials) returned
// before anything is sent.
func (c *Client) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	start := time.Now()
	ctx, span := c.tracer.Start(ctx, observability.SpanExecute,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(observability.AttrClientName, c.name)),
	)
	defer span.End()

	if err := c.chain.Apply(ctx, req); err != nil {
		c.observe(ctx, span, req, start, 0, err, observability.OutcomeInjector)
		return nil, err
	}

	req.SetHeaderDefault(HeaderUserAgent, c.defaults.UserAgent())

	wire, err := req.prepare()
	if err != nil {
		c.observe(ctx, span, req, start, 0, err, observability.OutcomeInvalid)
		return nil, err
	}

	span.SetAttributes(
		attribute.String(observability.AttrHTTPMethod, req.Method),
		attribute.String(observability.AttrURL, req.URL),
	)

	raw, err := c.transport.Send(ctx, wire, c.defaults.Timeout())
	if err != nil {
		terr := newTransportError(err)
		c.observe(ctx, span, req, start, 0, terr, observability.OutcomeTransport)
		return nil, terr
	}

	result, err := Classify(raw)
	if err != nil {
		c.observe(ctx, span, req, start, raw.StatusCode, err, observability.OutcomeAPIError)
		return nil, err
	}
	c.observe(ctx, span, req, start, raw.StatusCode, nil, observability.OutcomeSuccess)
	return result, nil
}

// observe records the span status, metrics and log line for one execution.
func (c *Client) observe(ctx context.Context, span trace.Span, req *Request, start time.Time, status int, err error, outcome string) {
	elapsed := time.Since(start)

	var kind string
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		kind = apiErr.Kind.String()
	}

	if status > 0 {
		span.SetAttributes(attribute.Int(observability.AttrHTTPStatusCode, status))
	}
	if err != nil {
		if kind != "" {
			span.SetAttributes(attribute.String(observability.AttrErrorKind, kind))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}

	c.metrics.Record(ctx, observability.Execution{
		Client:     c.name,
		Method:     req.Method,
		Outcome:    outcome,
		StatusCode: status,
		ErrorKind:  kind,
		Duration:   elapsed,
	})

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldURL, req.URL,
		"outcome", outcome,
	), elapsed)
	if id := req.Header(HeaderRequestID); id != "" {
		fields[logger.FieldRequestID] = id
	}
	if status > 0 {
		fields[logger.FieldStatus] = status
	}
	if kind != "" {
		fields[logger.FieldKind] = kind
	}

	if err == nil {
		c.log.Debug("request executed", fields)
		return
	}
	c.log.Warn("request failed", logger.MergeWithError(fields, err))
}
