// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at link time by the release build.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString describes the running binary. Builds without a linked Sha
// fall back to the vcs revision stamped by the go toolchain, shortened to 12
// characters.
func VersionString() string {
	sha := Sha
	if sha == "HEAD" {
		if rev, dirty := vcsRevision(); rev != "" {
			sha = rev
			if dirty {
				sha += "-dirty"
			}
		}
	}

	return fmt.Sprintf("fleet %s (%s) built %s %s", Version, sha, Buildtime, runtime.Version())
}

func vcsRevision() (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}

	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if len(rev) > 12 {
		rev = rev[:12]
	}
	return rev, dirty
}
