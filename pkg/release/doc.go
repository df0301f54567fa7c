// Copyright © 2018 One Concern

/*
Package release orchestrates the release of a versioned image.

A release computes a target version from the persisted baseline, checks the registry, asks for
confirmation when the outcome is ambiguous, stages the target into the baseline record so the
build can embed it, builds, restores the baseline and finally pushes.

Three flows are supported:

	ByMode(version.Patch)        next version computed from the baseline (or a revision tag, in test mode)
	ByExplicitVersion("2.0.0")   a caller-supplied version
	PromoteLatest("2.0.0")       rebuild and push the "latest" tag, embedding the given version

Every flow runs under an exclusive lock on the baseline. Whatever happens after staging (build
failure, decline, cancellation), the baseline is restored to the value it had before the release.
*/
package release
