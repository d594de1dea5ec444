package version

import (
	"runtime"
	"runtime/debug"
)

// Populated via -ldflags on release builds.
var (
	Version   string
	Branch    string
	BuildUser string
	BuildDate string
)

var (
	Revision  = vcsRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion prefers the release version and falls back to the VCS revision
// for builds straight from a checkout.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	rev, dirty := "unknown", ""

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}

		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}

	return rev + dirty
}
