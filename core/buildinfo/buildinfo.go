// Package buildinfo carries version stamps injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/m3rciful/loginbot/core/buildinfo.Version=v0.3.0 -X github.com/m3rciful/loginbot/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is the build time in RFC3339.
	Date = ""
)

// String renders the stamps for the startup banner.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
