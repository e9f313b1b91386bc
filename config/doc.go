// Package config loads service configuration from a YAML file, a .env file
// and the process environment using Viper.
//
// Files are resolved per service name in conventional locations (cmd/<name>,
// config/, the working directory and its parents) unless set explicitly:
//
//	var cfg MyConfig
//	err := config.LoadConfig("billing-api", &cfg, config.WithEnvPrefix("BILLING"))
//
// Environment variables override file values. A variable such as
// HTTP_CLIENT_TIMEOUT is bound to every dotted spelling of its key
// (http_client.timeout, http.client_timeout, ...), so nested sections are
// reachable without an explicit binding list.
package config
