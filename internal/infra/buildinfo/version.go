package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Name is the program name used in the User-Agent and version output.
const Name = "chartered-cli"

const unknown = "unknown"

// Set via ldflags. When left at their defaults, Get falls back to the
// module and VCS data the Go toolchain embeds.
var (
	Version   = "dev"
	Commit    = unknown
	BuildTime = unknown
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	Modified  bool   `json:"modified,omitempty" yaml:"modified,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build information.
func Get() Info {
	infoOnce.Do(func() {
		info = Info{
			Version:   Version,
			Commit:    Commit,
			BuildTime: BuildTime,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		if bi, ok := debug.ReadBuildInfo(); ok {
			fillFromBuildInfo(&info, bi)
		}
	})
	return info
}

// fillFromBuildInfo completes fields ldflags left unset. Binaries from
// `go install module@version` carry a module version; local builds carry
// vcs.* settings.
func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.BuildTime == unknown {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

// String returns a one-line version description.
func String() string {
	i := Get()
	s := i.Version + " (" + i.Commit + ")"
	if i.Modified {
		s += " modified"
	}
	return s + " built at " + i.BuildTime
}

// UserAgent returns the User-Agent header value for outbound requests.
func UserAgent() string {
	return Name + "/" + Get().Version
}
