// Package resilience provides the fault-tolerance primitives used by the
// httppipe transport: retry with exponential backoff, a circuit breaker,
// a token-bucket rate limiter and a concurrency bulkhead.
//
// The pipeline itself never retries; these primitives wrap the wire call
// inside httpclient.HTTPTransport:
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50, Burst: 10})
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("payments"))
//
//	resp, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*http.Response, error) {
//	    if err := rl.Wait(ctx); err != nil {
//	        return nil, err
//	    }
//	    var resp *http.Response
//	    err := cb.Execute(func() (err error) {
//	        resp, err = rt.RoundTrip(req)
//	        return err
//	    })
//	    return resp, err
//	})
package resilience
