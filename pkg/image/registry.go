package image

import (
	"context"
	"regexp"
	"strings"

	"github.com/oneconcern/releaser/pkg/command"
	"github.com/oneconcern/releaser/pkg/image/status"
	"github.com/oneconcern/releaser/pkg/version"
	"go.uber.org/zap"
)

// CheckMethod selects how tag existence is resolved
type CheckMethod string

const (
	// CheckManifest inspects the remote manifest without downloading layers
	CheckManifest CheckMethod = "manifest"

	// CheckPull pulls the image
	CheckPull CheckMethod = "pull"
)

// IsValid check method
func (c CheckMethod) IsValid() bool {
	switch c {
	case CheckManifest, CheckPull:
		return true
	default:
		return false
	}
}

// Check sets the method used to resolve tags
func Check(method CheckMethod) Option {
	return func(o *options) {
		if method != "" {
			o.check = method
		}
	}
}

// answers from the registry meaning the tag is not published
var notFoundRe = regexp.MustCompile(`(?i)(manifest unknown|no such manifest|manifest for \S+ not found)`)

// Registry queries the remote registry for published tags
type Registry struct {
	options
	runner command.Runner
	spec   Spec
}

// NewRegistry for an image
func NewRegistry(runner command.Runner, spec Spec, opts ...Option) *Registry {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Registry{
		options: o,
		runner:  runner,
		spec:    spec.withDefaults(),
	}
}

// TagExists tells if tag is published for the namespaced image.
//
// Only an explicit "not found" answer from the registry yields false. Any other failure is an ErrRegistry.
func (r *Registry) TagExists(ctx context.Context, tag string) (bool, error) {
	ref := r.spec.Remote(tag)
	var c command.Command
	switch r.check {
	case CheckPull:
		c = command.New(r.tool, "pull", "--quiet", ref)
	default:
		c = command.New(r.tool, "manifest", "inspect", ref)
	}

	res, err := r.runner.Run(ctx, c)
	if err != nil {
		return false, status.ErrRegistry.WrapMessage("checking %s: %v", ref, err)
	}
	if res.OK() {
		r.l.Debug("tag found in registry", zap.String("image", ref))
		return true, nil
	}
	if notFoundRe.MatchString(res.Stderr) || notFoundRe.MatchString(res.Stdout) {
		r.l.Debug("tag not found in registry", zap.String("image", ref))
		return false, nil
	}
	return false, status.ErrRegistry.WrapMessage("checking %s: exit code %d: %s", ref, res.ExitCode, strings.TrimSpace(res.Stderr))
}

// FetchPublishedBaseline pulls the latest image and reads its embedded version marker.
//
// It returns nil when no latest image is published.
func (r *Registry) FetchPublishedBaseline(ctx context.Context) (*version.Version, error) {
	ref := r.spec.Remote(LatestTag)

	res, err := r.runner.Run(ctx, command.New(r.tool, "pull", "--quiet", ref))
	if err != nil {
		return nil, status.ErrRegistry.WrapMessage("pulling %s: %v", ref, err)
	}
	if !res.OK() {
		if notFoundRe.MatchString(res.Stderr) {
			return nil, nil
		}
		return nil, status.ErrRegistry.WrapMessage("pulling %s: exit code %d: %s", ref, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	res, err = r.runner.Run(ctx, command.New(r.tool, "run", "--rm", ref, "cat", r.spec.Marker))
	if err != nil {
		return nil, status.ErrRegistry.WrapMessage("reading version marker from %s: %v", ref, err)
	}
	if !res.OK() {
		return nil, status.ErrRegistry.WrapMessage("reading version marker %s from %s: exit code %d: %s",
			r.spec.Marker, ref, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	fields := strings.Fields(res.Stdout)
	if len(fields) == 0 {
		return nil, version.ErrInvalidVersionFormat.WrapMessage("empty version marker in %s", ref)
	}
	v, err := version.Parse(fields[0])
	if err != nil {
		return nil, err
	}
	return &v, nil
}
