// Package buildinfo holds version metadata injected at build time with
// -ldflags "-X github.com/everydev1618/fincoach/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
