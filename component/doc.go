// Package component defines the lifecycle contract shared by managed
// infrastructure pieces such as httpclient.Component.
package component
