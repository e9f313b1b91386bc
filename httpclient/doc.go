// Package httpclient runs outbound HTTP requests through an injector
// pipeline and classifies the responses.
//
// A Client owns an ordered Chain of Injectors. Execute applies every
// injector to the same *Request in registration order, adds a default
// User-Agent when none is set, hands the request to a Transport and turns
// the RawResponse into either a *Result or a typed error:
//
//   - *APIError for non-2xx statuses, tagged with an ErrorKind
//   - *TransportError for network, TLS and timeout failures
//   - *TypeConstraintError when an invalid injector is registered
//
// Successful bodies are decoded into a structured.Value named "Result"
// whose mapping keys are normalized (hyphens become underscores, keys are
// lower-cased):
//
//	client, err := httpclient.NewAPIClient(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	}, httpclient.AuthInjector(httpclient.BearerAuth("token")))
//
//	res, err := client.Execute(ctx, httpclient.NewRequest(http.MethodGet, "/v1/orders/42"))
//	if httpclient.IsKind(err, httpclient.KindResourceNotFound) {
//	    // ...
//	}
//	id, _ := res.Result.Path("order_id").Text()
//
// HTTPTransport is the default Transport. It adds retry, circuit
// breaking, rate limiting, a concurrency bulkhead, cookies, TLS, OTel
// instrumentation and gzip decoding, all driven by Config.
package httpclient
