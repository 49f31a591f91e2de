// Fleet CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/fleet/internal/dagger"
)

// Fleet is the main module for the fleet CI/CD pipeline
type Fleet struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Fleet CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Fleet {
	return &Fleet{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted.
func (f *Fleet) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", f.Source)
}

// Test runs the fleet unit tests via "go test" against a redis service
// container. Postgres specs run when dsn is set.
func (f *Fleet) Test(
	ctx context.Context,

	// Postgres DSN for the transcript driver specs
	// +optional
	dsn *dagger.Secret,
) (string, error) {
	redis := dag.Container().
		From("redis:7-alpine").
		WithExposedPort(6379).
		AsService()

	ctr := f.goContainer().
		WithServiceBinding("redis", redis).
		WithEnvVariable("FLEET_TEST_REDIS_URL", "redis://redis:6379/0")
	if dsn != nil {
		ctr = ctr.WithSecretVariable("FLEET_TEST_POSTGRES_DSN", dsn)
	}

	return ctr.
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
