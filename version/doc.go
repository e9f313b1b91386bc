// Package version holds the httppipe release version and builds the
// default User-Agent sent by clients that do not set one.
//
// Version is set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/httppipe/version.Version=1.2.0"
package version
