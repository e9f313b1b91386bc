package httpclient

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header names set by the standard injectors.
const (
	HeaderRequestID      = "X-Request-Id"
	HeaderAcceptEncoding = "Accept-Encoding"
	HeaderContentType    = "Content-Type"
	HeaderUserAgent      = "User-Agent"
)

// ErrEmptyToken is returned by TokenInjector when the source yields an empty token.
var ErrEmptyToken = errors.New("httpclient: token source returned an empty token")

// AuthInjector applies client-level credentials. Requests that carry their
// own Auth are left for the transport to authenticate.
func AuthInjector(auth *AuthConfig) Injector {
	return InjectorFunc(func(_ context.Context, req *Request) error {
		if req.Auth != nil {
			return nil
		}
		return auth.Apply(req)
	})
}

// BaseURLInjector prefixes relative request URLs with base. Absolute http
// and https URLs are left alone.
func BaseURLInjector(base string) Injector {
	return InjectorFunc(func(_ context.Context, req *Request) error {
		if base == "" || isAbsoluteURL(req.URL) {
			return nil
		}
		req.URL = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(req.URL, "/")
		return nil
	})
}

func isAbsoluteURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// JSONContentTypeInjector marks requests with a JSON body as application/json.
func JSONContentTypeInjector() Injector {
	return InjectorFunc(func(_ context.Context, req *Request) error {
		if req.JSON != nil {
			req.SetHeader(HeaderContentType, "application/json")
		}
		return nil
	})
}

// AcceptEncodingInjector asks for gzip unless Accept-Encoding is already set.
func AcceptEncodingInjector() Injector {
	return InjectorFunc(func(_ context.Context, req *Request) error {
		req.SetHeaderDefault(HeaderAcceptEncoding, "gzip")
		return nil
	})
}

// DefaultHeadersInjector sets each header that the request does not carry yet.
func DefaultHeadersInjector(headers map[string]string) Injector {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	return InjectorFunc(func(_ context.Context, req *Request) error {
		for _, name := range names {
			req.SetHeaderDefault(name, headers[name])
		}
		return nil
	})
}

// DefaultInjector resolves the base URL, marks JSON bodies, requests gzip
// and fills default headers, in that order.
func DefaultInjector(baseURL string, headers map[string]string) *Chain {
	return MustChain(
		BaseURLInjector(baseURL),
		JSONContentTypeInjector(),
		AcceptEncodingInjector(),
		DefaultHeadersInjector(headers),
	)
}

// TokenSource supplies bearer tokens, e.g. from an OAuth client.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// TokenInjector sets a bearer token fetched from src on every request.
func TokenInjector(src TokenSource) Injector {
	return InjectorFunc(func(ctx context.Context, req *Request) error {
		token, err := src.Token(ctx)
		if err != nil {
			return err
		}
		if token == "" {
			return ErrEmptyToken
		}
		req.SetHeader("Authorization", "Bearer "+token)
		return nil
	})
}

type requestIDKey struct{}

// ContextWithRequestID stores a request ID for RequestIDInjector to forward.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// RequestIDInjector sets X-Request-Id when absent, forwarding the ID from
// the context or generating a new UUID.
func RequestIDInjector() Injector {
	return InjectorFunc(func(ctx context.Context, req *Request) error {
		if req.HasHeader(HeaderRequestID) {
			return nil
		}
		id, ok := RequestIDFromContext(ctx)
		if !ok {
			id = uuid.NewString()
		}
		req.SetHeader(HeaderRequestID, id)
		return nil
	})
}

// TraceInjector writes the span context of ctx into the request headers.
// A nil propagator uses the global one.
func TraceInjector(propagator propagation.TextMapPropagator) Injector {
	return InjectorFunc(func(ctx context.Context, req *Request) error {
		p := propagator
		if p == nil {
			p = otel.GetTextMapPropagator()
		}
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}
		p.Inject(ctx, propagation.HeaderCarrier(req.Headers))
		return nil
	})
}
