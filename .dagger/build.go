package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/fleet/internal/dagger"
)

// Build and return directory of go binaries for the container's platform.
// go-sqlite3 needs cgo, so builds are native rather than cross compiled.
func (f *Fleet) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	path := "bin/"

	build := f.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/fleet"})

	return dag.Directory().WithDirectory(path, build.Directory(path))
}

// BuildRelease compiles versioned release binaries with embedded version info
func (f *Fleet) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/fleet/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/fleet/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/fleet/pkg/utils.Buildtime=%s'", buildtime.Format(time.RFC3339)),
	}

	return f.Build(ctx, strings.Join(ldflags, " "))
}
