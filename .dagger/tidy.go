package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/fleet/internal/dagger"
)

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum, or
// when a downloaded module does not match go.sum.
//
// +check
func (f *Fleet) CheckGoModTidy(ctx context.Context) (string, error) {
	out, err := f.goContainer().
		WithExec([]string{"go", "mod", "verify"}).
		WithExec([]string{"sh", "-c", "cp go.mod /tmp/go.mod && cp go.sum /tmp/go.sum"}).
		WithExec([]string{"go", "mod", "tidy"}).
		WithExec([]string{"sh", "-c", "diff -u /tmp/go.mod go.mod && diff -u /tmp/go.sum go.sum"}).
		Stdout(ctx)

	var execErr *dagger.ExecError
	switch {
	case errors.As(err, &execErr):
		return "", fmt.Errorf("go.mod or go.sum need attention: run 'go mod tidy' and commit the changes\n\n%s%s",
			execErr.Stdout, execErr.Stderr)
	case err != nil:
		return "", fmt.Errorf("checking go.mod: %w", err)
	}

	return "go.mod and go.sum are tidy\n" + out, nil
}
