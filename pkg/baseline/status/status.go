// Package status exports errors produced by the baseline package.
package status

import (
	"github.com/oneconcern/releaser/pkg/errors"
)

var (
	// ErrStorage indicates the persisted baseline record could not be read or written
	ErrStorage = errors.New("baseline storage error")

	// ErrLocked indicates another release currently holds the baseline
	ErrLocked = errors.New("baseline is locked by another release")

	// ErrExists indicates an attempt to initialize an already recorded baseline
	ErrExists = errors.New("baseline already recorded")
)
