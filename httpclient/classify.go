package httpclient

import (
	"bytes"
	"net/http"

	"github.com/kbukum/httppipe/structured"
)

// Name given to decoded bodies.
const (
	ResultName = "Result"
	ErrorName  = "data"
)

// Result is a successful (2xx) response.
type Result struct {
	StatusCode int
	Headers    http.Header
	// Result is null for an empty body, a string for a non-JSON body and the
	// decoded tree otherwise.
	Result structured.Value
}

// Classify turns a raw response into a *Result for 2xx statuses and an
// *APIError otherwise. Body parse failures are never errors; the raw text
// is kept instead.
func Classify(raw *RawResponse) (*Result, error) {
	headers := raw.Headers
	if headers == nil {
		headers = make(http.Header)
	}

	if raw.StatusCode >= 200 && raw.StatusCode <= 299 {
		return &Result{
			StatusCode: raw.StatusCode,
			Headers:    headers,
			Result:     decodeBody(raw.Body, ResultName),
		}, nil
	}

	kind := KindForStatus(raw.StatusCode)
	data := decodeBody(raw.Body, ErrorName)
	if kind == KindGeneric {
		data = structured.Decode(string(raw.Body), ErrorName)
	}
	return nil, &APIError{
		Kind:       kind,
		StatusCode: raw.StatusCode,
		Headers:    headers,
		Data:       data,
		Body:       raw.Body,
	}
}

// decodeBody decodes JSON bodies and falls back to the raw text.
func decodeBody(body []byte, name string) structured.Value {
	if len(bytes.TrimSpace(body)) == 0 {
		return structured.Null(name)
	}
	if v, err := structured.DecodeJSON(body, name); err == nil {
		return v
	}
	return structured.Decode(string(body), name)
}
