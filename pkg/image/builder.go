package image

import (
	"context"
	"fmt"

	"github.com/oneconcern/releaser/pkg/command"
	"go.uber.org/zap"
)

// Option for image builders and registries
type Option func(*options)

type options struct {
	tool   string
	dryRun bool
	check  CheckMethod
	l      *zap.Logger
}

func defaultOptions() options {
	return options{
		tool:  defaultTool,
		check: CheckManifest,
		l:     zap.NewNop(),
	}
}

// Tool overrides the build tool binary (defaults to "docker")
func Tool(bin string) Option {
	return func(o *options) {
		if bin != "" {
			o.tool = bin
		}
	}
}

// DryRun disables pushes
func DryRun(enabled bool) Option {
	return func(o *options) {
		o.dryRun = enabled
	}
}

// Logger injects a logging facility
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// Builder builds, pushes and removes tagged images
type Builder struct {
	options
	runner command.Runner
	spec   Spec
}

// NewBuilder for an image
func NewBuilder(runner command.Runner, spec Spec, opts ...Option) *Builder {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	return &Builder{
		options: o,
		runner:  runner,
		spec:    spec.withDefaults(),
	}
}

// Build an image from the build context, tagged with all aliases for tag.
//
// A build that runs to completion returns a nil error: callers decide on the exit code.
func (b *Builder) Build(ctx context.Context, tag string) (command.Result, error) {
	args := []string{"build", b.spec.Context}
	if b.spec.Dockerfile != "" {
		args = append(args, "-f", b.spec.Dockerfile)
	}
	for _, alias := range b.spec.Aliases(tag) {
		args = append(args, "-t", alias)
	}
	b.l.Info("building image", zap.String("tag", tag), zap.Strings("aliases", b.spec.Aliases(tag)))
	return b.runner.Run(ctx, command.New(b.tool, args...))
}

// Push the namespaced image for tag. In dry-run mode, nothing is pushed and a synthetic success is returned.
func (b *Builder) Push(ctx context.Context, tag string) (command.Result, error) {
	ref := b.spec.Remote(tag)
	if b.dryRun {
		b.l.Info("dry run: skipping push", zap.String("image", ref))
		return command.Result{Stdout: fmt.Sprintf("dry run: skipped push of %s\n", ref)}, nil
	}
	b.l.Info("pushing image", zap.String("image", ref))
	return b.runner.Run(ctx, command.New(b.tool, "push", ref))
}

// Clean removes all local aliases for tag. This is best effort: failures are logged, never returned.
func (b *Builder) Clean(ctx context.Context, tag string) command.Result {
	aliases := b.spec.Aliases(tag)
	b.l.Info("cleaning up local images", zap.Strings("images", aliases))
	res, err := b.runner.Run(ctx, command.New(b.tool, append([]string{"rmi", "-f"}, aliases...)...))
	if err != nil {
		b.l.Warn("could not remove local images", zap.Strings("images", aliases), zap.Error(err))
		return command.Result{ExitCode: -1, Stderr: err.Error()}
	}
	if !res.OK() {
		b.l.Warn("could not remove local images", zap.Strings("images", aliases),
			zap.Int("exit_code", res.ExitCode), zap.String("stderr", res.Stderr))
	}
	return res
}
