// Package version reports the build version, injected with
//
//	go build -ldflags "-X stall/pkg/version.commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	release = "0.1.0-dev"
	commit  = "unknown"
)

// Version returns "<release> (<commit>)".
func Version() string {
	return fmt.Sprintf("%s (%s)", release, commit)
}
