package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"dagger/fleet/internal/dagger"
)

// bucket is an S3 compatible release bucket.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// withChecksums adds a SHA256SUMS file covering every binary in bin/.
func withChecksums(artifacts *dagger.Directory) *dagger.Directory {
	sums := dag.Container().
		From("alpine:3").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts/bin").
		WithExec([]string{"sh", "-c", "sha256sum * > SHA256SUMS"}).
		File("/artifacts/bin/SHA256SUMS")

	return artifacts.WithFile("bin/SHA256SUMS", sums)
}

// sync uploads artifacts under each prefix of the bucket.
func (b *bucket) sync(ctx context.Context, artifacts *dagger.Directory, prefixes ...string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}

	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	aws := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range prefixes {
		dest := "s3://" + path.Join(name, prefix)

		_, err := aws.
			WithExec([]string{"aws", "s3", "sync", ".", dest, "--endpoint-url", endpoint}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("uploading artifacts to %s: %w", prefix, err)
		}
	}

	return nil
}

// ReleaseLatest builds versioned binaries and uploads them under the version
// and under latest.
func (f *Fleet) ReleaseLatest(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	endpoint *dagger.Secret,
	bucketName *dagger.Secret,
	accessKeyId *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := &bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyId, secretAccessKey: secretAccessKey}

	artifacts := withChecksums(f.BuildRelease(ctx, version, commit))
	return artifacts, b.sync(ctx, artifacts, version, "latest")
}

// Nightly builds the commit and uploads it under nightly and a dated
// nightly/YYYY-MM-DD prefix.
func (f *Fleet) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	endpoint *dagger.Secret,
	bucketName *dagger.Secret,
	accessKeyId *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := &bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyId, secretAccessKey: secretAccessKey}

	artifacts := withChecksums(f.BuildRelease(ctx, "nightly", commit))
	dated := path.Join("nightly", time.Now().UTC().Format(time.DateOnly))
	return artifacts, b.sync(ctx, artifacts, "nightly", dated)
}
