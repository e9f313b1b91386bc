package httpclient

import (
	"context"
	"reflect"
	"sync"
)

// Injector mutates a request in place before it is sent.
type Injector interface {
	Inject(ctx context.Context, req *Request) error
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(ctx context.Context, req *Request) error

// Inject calls f.
func (f InjectorFunc) Inject(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// Chain is an ordered, append-only list of injectors. A Chain is itself an
// Injector, so chains nest.
type Chain struct {
	mu        sync.RWMutex
	injectors []Injector
}

var _ Injector = (*Chain)(nil)

// NewChain creates a chain holding the given injectors in order.
func NewChain(injectors ...Injector) (*Chain, error) {
	c := &Chain{}
	for _, inj := range injectors {
		if err := c.Register(inj); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustChain is like NewChain but panics on an invalid injector.
func MustChain(injectors ...Injector) *Chain {
	c, err := NewChain(injectors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Register appends inj. It returns a *TypeConstraintError when inj is nil,
// wraps a nil value, or is the chain itself.
func (c *Chain) Register(inj Injector) error {
	if isNilInjector(inj) {
		return &TypeConstraintError{Value: inj, Reason: "injector is nil"}
	}
	if other, ok := inj.(*Chain); ok && other == c {
		return &TypeConstraintError{Value: inj, Reason: "chain cannot contain itself"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.injectors = append(c.injectors, inj)
	return nil
}

// Len returns the number of registered injectors.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.injectors)
}

// Apply runs every injector in registration order on req. The first error
// stops the chain and is returned unchanged.
func (c *Chain) Apply(ctx context.Context, req *Request) error {
	c.mu.RLock()
	snapshot := c.injectors[:len(c.injectors):len(c.injectors)]
	c.mu.RUnlock()

	for _, inj := range snapshot {
		if err := inj.Inject(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// Inject implements Injector.
func (c *Chain) Inject(ctx context.Context, req *Request) error {
	return c.Apply(ctx, req)
}

func isNilInjector(inj Injector) bool {
	if inj == nil {
		return true
	}
	v := reflect.ValueOf(inj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
