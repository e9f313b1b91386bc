package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrConflictingBody is returned when a request carries both a raw and a JSON body.
var ErrConflictingBody = errors.New("httpclient: request has both a raw body and a JSON body")

// ErrNilRequest is returned by Execute for a nil request.
var ErrNilRequest = errors.New("httpclient: nil request")

// Request is an outbound request. Injectors mutate it in place.
type Request struct {
	// Method is the HTTP method (GET, POST, ...).
	Method string
	// URL is absolute or relative to a base URL resolved by an injector.
	URL string
	// Headers are sent as-is. Presence checks ignore case.
	Headers http.Header
	// Body is the raw body.
	Body []byte
	// JSON is serialized as the body when set. At most one of Body and JSON may be set.
	JSON any
	// Auth overrides client-level credentials for this request.
	Auth *AuthConfig
}

// RequestOption configures a Request built by NewRequest.
type RequestOption func(*Request)

// NewRequest creates a request with an empty header set.
func NewRequest(method, url string, opts ...RequestOption) *Request {
	r := &Request{Method: method, URL: url, Headers: make(http.Header)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithHeader sets a header, replacing any spelling of the same name.
func WithHeader(name, value string) RequestOption {
	return func(r *Request) { r.SetHeader(name, value) }
}

// WithJSON sets the structured body.
func WithJSON(v any) RequestOption {
	return func(r *Request) { r.JSON = v }
}

// WithBody sets the raw body.
func WithBody(b []byte) RequestOption {
	return func(r *Request) { r.Body = b }
}

// WithAuth sets per-request credentials.
func WithAuth(auth *AuthConfig) RequestOption {
	return func(r *Request) { r.Auth = auth }
}

// HasHeader reports whether a header is present under any spelling.
func (r *Request) HasHeader(name string) bool {
	for k := range r.Headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Header returns the first value of a header under any spelling.
func (r *Request) Header(name string) string {
	for k, vs := range r.Headers {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// SetHeader sets a header and drops other spellings of the same name.
func (r *Request) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	for k := range r.Headers {
		if strings.EqualFold(k, name) {
			delete(r.Headers, k)
		}
	}
	r.Headers.Set(name, value)
}

// SetHeaderDefault sets a header only when absent and reports whether it did.
func (r *Request) SetHeaderDefault(name, value string) bool {
	if r.HasHeader(name) {
		return false
	}
	r.SetHeader(name, value)
	return true
}

// checkBody enforces that at most one body representation is set.
func (r *Request) checkBody() error {
	if r.Body != nil && r.JSON != nil {
		return ErrConflictingBody
	}
	return nil
}

// encodeBody returns the wire body and the content type it implies.
func (r *Request) encodeBody() ([]byte, string, error) {
	if err := r.checkBody(); err != nil {
		return nil, "", err
	}
	if r.JSON == nil {
		return r.Body, "", nil
	}
	data, err := json.Marshal(r.JSON)
	if err != nil {
		return nil, "", fmt.Errorf("httpclient: encode json body: %w", err)
	}
	return data, "application/json", nil
}

// prepare returns the request as it goes on the wire: request-level
// credentials applied and a JSON body encoded into Body. r is not modified.
func (r *Request) prepare() (*Request, error) {
	body, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	out := r.clone()
	if r.Auth != nil {
		if err := r.Auth.Apply(out); err != nil {
			return nil, err
		}
		out.Auth = nil
	}
	if r.JSON != nil {
		out.Body = body
		out.JSON = nil
		out.SetHeaderDefault(HeaderContentType, contentType)
	}
	return out, nil
}

// clone copies the request with its own header set.
func (r *Request) clone() *Request {
	cp := *r
	cp.Headers = r.Headers.Clone()
	if cp.Headers == nil {
		cp.Headers = make(http.Header)
	}
	return &cp
}
