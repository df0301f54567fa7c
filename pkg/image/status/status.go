// Package status exports errors produced by the image package.
package status

import (
	"github.com/oneconcern/releaser/pkg/errors"
)

var (
	// ErrRegistry indicates the registry could not answer a query: this is never a "not found" answer
	ErrRegistry = errors.New("registry error")

	// ErrBuildFailure indicates the build tool failed to build or push an image
	ErrBuildFailure = errors.New("build failure")

	// ErrRevision indicates the current source revision could not be determined
	ErrRevision = errors.New("cannot determine source revision")
)
