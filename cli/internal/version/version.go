// Package version holds the lmcommit version string. Default is "dev"; release
// builds set it via: go build -ldflags "-X lmcommit/cli/internal/version.Version=v1.0.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the lmcommit version. Set at build time for releases.
var Version = "dev"

// Commit is the short git commit hash. Set at build time via ldflags; when
// empty, dev builds fall back to the VCS revision stamped by the Go toolchain.
var Commit = ""

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// String returns the version for --version: "dev (abc1234)" for dev builds
// with a known commit, otherwise Version.
func String() string {
	if Version != "dev" {
		return Version
	}
	c := commit()
	if c == "" {
		return Version
	}
	return Version + " (" + c + ")"
}

// Long returns String plus the Go version and platform, for the version command.
func Long() string {
	return fmt.Sprintf("lmcommit %s %s %s/%s", String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func commit() string {
	if Commit != "" {
		return Commit
	}
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
