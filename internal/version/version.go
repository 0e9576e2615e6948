// Package version reports the build identity of the bridge binaries.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/eljam3239/flutter-epson/internal/version.Version=v0.3.0 \
//	                   -X github.com/eljam3239/flutter-epson/internal/version.Commit=abc1234"
var (
	// Version is the semantic version of the bridge
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		v, c := fromBuildInfo()
		if Version == "" {
			Version = v
		}
		if Commit == "" {
			Commit = c
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo derives a version and short commit from VCS stamping.
func fromBuildInfo() (version, commit string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}

	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if commit != "" && dirty {
		commit += "-dirty"
	}
	return version, commit
}

// Full returns the version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
