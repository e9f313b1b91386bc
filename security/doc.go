// Package security builds *tls.Config values for outbound HTTP transports
// from file-based configuration (CA bundle, client certificate for mTLS,
// server name override and minimum protocol version).
package security
