package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Product is the name reported in the default User-Agent.
const Product = "httppipe-go"

// modulePath is used to find this module's version in the embedding binary's build info.
const modulePath = "github.com/kbukum/httppipe"

// Version is overridden at build time using -ldflags.
var Version = "dev"

// Resolve returns the effective version. A "dev" build that is embedded as a
// dependency reports the version recorded in the binary's build info.
func Resolve() string {
	if Version != "dev" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath && dep.Version != "" && dep.Version != "(devel)" {
			return dep.Version
		}
	}
	return Version
}

// UserAgent returns the default User-Agent, e.g. "httppipe-go/1.2.0 (go1.26.0; linux/amd64)".
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s/%s)", Product, Resolve(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
