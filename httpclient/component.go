package httpclient

import (
	"context"
	"fmt"

	"github.com/kbukum/httppipe/component"
	"github.com/kbukum/httppipe/resilience"
)

// Component wraps an API client with lifecycle management.
type Component struct {
	config Config
	auth   Injector
	opts   []Option
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component. The client is built in Start with
// NewAPIClient.
func NewComponent(cfg Config, auth Injector, opts ...Option) *Component {
	return &Component{config: cfg, auth: auth, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	if c.config.Name == "" {
		return "http"
	}
	return c.config.Name
}

// Start builds the client.
func (c *Component) Start(_ context.Context) error {
	client, err := NewAPIClient(c.config, c.auth, c.opts...)
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

// Stop releases idle connections.
func (c *Component) Stop(_ context.Context) error {
	if c.client == nil {
		return nil
	}
	if t, ok := c.client.transport.(*HTTPTransport); ok {
		t.CloseIdleConnections()
	}
	c.client = nil
	return nil
}

// Health reports unhealthy before Start and degraded while the circuit is open.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	if t, ok := c.client.transport.(*HTTPTransport); ok {
		if state := t.CircuitState(); state != resilience.StateClosed {
			h.Status = component.StatusDegraded
			h.Message = fmt.Sprintf("circuit %s", state)
		}
	}
	return h
}

// Describe returns the component summary.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: c.config.BaseURL,
	}
}

// Client returns the client built by Start, or nil before it.
func (c *Component) Client() *Client {
	return c.client
}
