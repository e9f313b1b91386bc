package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/httppipe/logger"
	"github.com/kbukum/httppipe/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Resolve(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Metric names recorded by ClientMetrics.
const (
	MetricExecutions       = "httppipe.client.executions"
	MetricDuration         = "httppipe.client.duration"
	MetricInjectorFailures = "httppipe.client.injector_failures"
)

// Execution outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeAPIError  = "api_error"
	OutcomeTransport = "transport_error"
	OutcomeInjector  = "injector_error"
	OutcomeInvalid   = "invalid_request"
)

// ClientMetrics holds the instruments recorded per pipeline execution.
type ClientMetrics struct {
	executions       metric.Int64Counter
	duration         metric.Float64Histogram
	injectorFailures metric.Int64Counter
}

// Execution describes one finished pipeline execution.
type Execution struct {
	Client     string
	Method     string
	Outcome    string
	StatusCode int
	ErrorKind  string
	Duration   time.Duration
}

// NewClientMetrics creates instruments on mp, or on the global provider when mp is nil.
func NewClientMetrics(mp metric.MeterProvider) (*ClientMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(version.Resolve()))

	executions, err := meter.Int64Counter(MetricExecutions,
		metric.WithDescription("Pipeline executions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricExecutions, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Pipeline execution duration, injectors through classification"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	injectorFailures, err := meter.Int64Counter(MetricInjectorFailures,
		metric.WithDescription("Executions aborted by a failing injector"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricInjectorFailures, err)
	}

	return &ClientMetrics{
		executions:       executions,
		duration:         duration,
		injectorFailures: injectorFailures,
	}, nil
}

// Record records one execution. A nil receiver records nothing.
func (m *ClientMetrics) Record(ctx context.Context, e Execution) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrClientName, e.Client),
		attribute.String(AttrHTTPMethod, e.Method),
		attribute.String("outcome", e.Outcome),
	}
	if e.StatusCode > 0 {
		attrs = append(attrs, attribute.Int(AttrHTTPStatusCode, e.StatusCode))
	}
	if e.ErrorKind != "" {
		attrs = append(attrs, attribute.String(AttrErrorKind, e.ErrorKind))
	}

	m.executions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, e.Duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrClientName, e.Client),
		attribute.String(AttrHTTPMethod, e.Method),
	))
	if e.Outcome == OutcomeInjector {
		m.injectorFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrClientName, e.Client)))
	}
}
