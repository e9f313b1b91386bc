// Package errors provides the shared application error type used when an
// upstream HTTP failure has to be surfaced by a service built on httppipe.
//
// An AppError carries a machine-readable code, a retryable hint and the
// HTTP status the calling service should answer with. httpclient.APIError
// converts itself into an AppError via AppError().
package errors
