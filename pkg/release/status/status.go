// Package status exports errors produced by the release package.
package status

import (
	"github.com/oneconcern/releaser/pkg/errors"
)

var (
	// ErrInvalidRequest indicates a release request that cannot be carried out
	ErrInvalidRequest = errors.New("invalid release request")
)
