// Package version computes release versions.
//
// A baseline version is always made of exactly three numeric components (major.minor.patch).
// Everything in this package is pure: no I/O, no global state.
package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver"
	"github.com/oneconcern/releaser/pkg/errors"
)

var (
	// ErrInvalidVersionFormat is returned when a version text is not made of three dot-separated digit groups
	ErrInvalidVersionFormat = errors.New("invalid version format")

	// ErrUnknownMode is returned for a release mode that does not increment a version
	ErrUnknownMode = errors.New("unknown version update mode")

	// ErrOverflow is returned when the component to increment is already at its maximum
	ErrOverflow = errors.New("version component overflow")

	digitGroups = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// Mode of version update
type Mode string

const (
	// Major increments X in X.Y.Z
	Major Mode = "major"
	// Minor increments Y in X.Y.Z
	Minor Mode = "minor"
	// Patch increments Z in X.Y.Z
	Patch Mode = "patch"
	// Test builds a one-off image tagged with the source revision. It never computes a version.
	Test Mode = "test"
)

// Modes lists all supported modes, in CLI help order
var Modes = []Mode{Major, Minor, Patch, Test}

// ParseMode maps a CLI value to a Mode
func ParseMode(text string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(text)))
	switch m {
	case Major, Minor, Patch, Test:
		return m, nil
	default:
		return "", ErrUnknownMode.WrapMessage("%q: must be one of %v", text, Modes)
	}
}

func (m Mode) String() string {
	return string(m)
}

// Version is a baseline version
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// New version from its components
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 when v is lower, equal or greater than o
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

// Equal versions
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

func (v Version) semver() semver.Version {
	return semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

// ValidFormat tells if text is made of one or more digit groups separated by dots,
// optionally followed by a single newline.
func ValidFormat(text string) bool {
	return digitGroups.MatchString(strings.TrimSuffix(text, "\n"))
}

// Parse a baseline version.
//
// One trailing newline is tolerated. Anything else than exactly three digit groups fails with ErrInvalidVersionFormat.
func Parse(text string) (Version, error) {
	if !ValidFormat(text) {
		return Version{}, ErrInvalidVersionFormat.WrapMessage("%q: must be X.Y.Z with X, Y and Z digits", text)
	}
	parts := strings.Split(strings.TrimSuffix(text, "\n"), ".")
	if len(parts) != 3 {
		return Version{}, ErrInvalidVersionFormat.WrapMessage("%q: expected 3 components, got %d", text, len(parts))
	}
	var components [3]uint64
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, ErrInvalidVersionFormat.Wrap(err)
		}
		components[i] = n
	}
	return New(components[0], components[1], components[2]), nil
}

// MustParse is like Parse but panics on error
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// Next version after current, according to mode
func Next(current Version, mode Mode) (Version, error) {
	switch mode {
	case Major:
		if current.Major == math.MaxUint64 {
			return Version{}, ErrOverflow.WrapMessage("cannot increment major of %v", current)
		}
		return New(current.Major+1, 0, 0), nil
	case Minor:
		if current.Minor == math.MaxUint64 {
			return Version{}, ErrOverflow.WrapMessage("cannot increment minor of %v", current)
		}
		return New(current.Major, current.Minor+1, 0), nil
	case Patch:
		if current.Patch == math.MaxUint64 {
			return Version{}, ErrOverflow.WrapMessage("cannot increment patch of %v", current)
		}
		return New(current.Major, current.Minor, current.Patch+1), nil
	default:
		return Version{}, ErrUnknownMode.WrapMessage("%q does not increment a version: must be major, minor, or patch", mode)
	}
}
