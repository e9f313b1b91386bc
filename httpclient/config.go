package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/httppipe/config"
	"github.com/kbukum/httppipe/resilience"
	"github.com/kbukum/httppipe/security"
	"github.com/kbukum/httppipe/validation"
	"github.com/kbukum/httppipe/version"
)

const (
	defaultTimeout = 30 * time.Second
	configSection  = "http_client"
)

// DefaultRetryStatuses are the statuses HTTPTransport retries when retry is on.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Config configures a Client and its HTTPTransport.
type Config struct {
	// Name identifies the client in logs, metrics and spans.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is prepended to relative request URLs by the default injector.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,httpurl"`

	// Timeout is handed to the transport for every request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is set on requests without one. Defaults to version.UserAgent().
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are set on requests that do not carry them yet.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Auth configures client-level credentials.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// JWT signs a service token per request when Auth is not set.
	JWT *JWTConfig `yaml:"jwt" mapstructure:"jwt"`

	// TLS configures the transport's TLS settings.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Transport configures HTTPTransport resilience and cookies.
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`

	// RequestID adds an X-Request-Id header to every request.
	RequestID bool `yaml:"request_id" mapstructure:"request_id"`

	// Tracing propagates trace context and instruments the transport.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
}

// TransportConfig configures HTTPTransport. Nil sections are disabled.
type TransportConfig struct {
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	RetryStatuses  []int                            `yaml:"retry_statuses" mapstructure:"retry_statuses"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimit      *resilience.RateLimiterConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
	// Cookies keeps a cookie jar across requests.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.Transport.Retry != nil && c.Transport.RetryStatuses == nil {
		c.Transport.RetryStatuses = DefaultRetryStatuses
	}
	if c.Transport.CircuitBreaker != nil && c.Transport.CircuitBreaker.Name == "" {
		c.Transport.CircuitBreaker.Name = c.Name
	}
	if c.Transport.RateLimit != nil && c.Transport.RateLimit.Name == "" {
		c.Transport.RateLimit.Name = c.Name
	}
	if c.Transport.Bulkhead != nil && c.Transport.Bulkhead.Name == "" {
		c.Transport.Bulkhead.Name = c.Name
	}
}

// Validate checks struct tags and the TLS files.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return fmt.Errorf("httpclient: tls: %w", err)
		}
	}
	return nil
}

// LoadConfig reads the http_client section of the service configuration.
// Defaults are applied and the result is validated.
func LoadConfig(serviceName string, opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	if err := config.LoadSection(serviceName, configSection, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultRetryConfig returns a retry config for HTTP transports.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	return &cfg
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
