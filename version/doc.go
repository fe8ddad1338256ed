// Package version reports the flowtorch build version.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/flowtorch/version.Version=1.2.0" ./cmd/flowtorch
package version
