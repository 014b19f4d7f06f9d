package version

import (
	"fmt"
	"runtime"
)

// Semantic version of the SDK.
const (
	Major      = 1
	Minor      = 0
	Patch      = 0
	PreRelease = "" // e.g. "beta", "rc1"

	// GitCommit and BuildDate are injected at build time via -ldflags.
	GitCommit = ""
	BuildDate = ""
)

// Version returns the semantic version string.
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}
	return v
}

// BuildInfo describes the build in a form suitable for health endpoints.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Name      string `json:"name"`
}

// GetBuildInfo returns complete build information.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Name:      "Trade Intent SDK",
	}
}

// UserAgent returns the string sent on outbound HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("trade-intent-sdk/%s", Version())
}

// IsCompatible reports whether another SDK version can interoperate with this
// one: same major, and no newer minor than ours.
func IsCompatible(otherMajor, otherMinor int) bool {
	if otherMajor != Major {
		return false
	}
	return otherMinor <= Minor
}
