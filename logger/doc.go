// Package logger provides structured logging for httppipe using zerolog.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("httpclient")
//	log.Debug("request executed", logger.Fields("method", "GET", "status", 200))
package logger
