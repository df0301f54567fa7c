// Package image drives the docker CLI to build, check, push and remove versioned images.
package image

import (
	"regexp"
	"strings"
)

const (
	// LatestTag is the tag of the published baseline image
	LatestTag = "latest"

	// DefaultMarker is the path, inside the image, of the embedded version marker
	DefaultMarker = "VERSION"

	defaultTool = "docker"
)

var tagRe = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)

// ValidTag tells if a tag is acceptable to the docker CLI
func ValidTag(tag string) bool {
	return tagRe.MatchString(tag)
}

// Spec describes the image to release
type Spec struct {
	// Name of the image, e.g. "nginx-uwsgi-falcon-server"
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// Namespace on the registry, e.g. "syangnub". The namespaced image is the one pushed.
	Namespace string `mapstructure:"namespace" json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Context is the build context directory
	Context string `mapstructure:"context" json:"context,omitempty" yaml:"context,omitempty"`

	// Dockerfile overrides the default Dockerfile of the build context
	Dockerfile string `mapstructure:"dockerfile" json:"dockerfile,omitempty" yaml:"dockerfile,omitempty"`

	// Marker is the path of the version file baked into the image
	Marker string `mapstructure:"marker" json:"marker,omitempty" yaml:"marker,omitempty"`
}

func (s Spec) withDefaults() Spec {
	if s.Context == "" {
		s.Context = "."
	}
	if s.Marker == "" {
		s.Marker = DefaultMarker
	}
	return s
}

// Local image reference for a tag
func (s Spec) Local(tag string) string {
	return s.Name + ":" + tag
}

// Remote image reference for a tag, qualified by the namespace
func (s Spec) Remote(tag string) string {
	if strings.TrimSpace(s.Namespace) == "" {
		return s.Local(tag)
	}
	return s.Namespace + "/" + s.Name + ":" + tag
}

// Aliases of an image build: the version-qualified name and the namespace-qualified name
func (s Spec) Aliases(tag string) []string {
	local, remote := s.Local(tag), s.Remote(tag)
	if local == remote {
		return []string{local}
	}
	return []string{local, remote}
}
