// Package buildinfo carries identifiers stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X sparkrt/internal/buildinfo.Version=v0.3.0"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns a compact build identifier for window titles and log lines.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// Long returns every identifier as key=value pairs.
func Long() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", Version, Commit, Date)
}
