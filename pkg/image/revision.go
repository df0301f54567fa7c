package image

import (
	"context"
	"strings"

	"github.com/oneconcern/releaser/pkg/command"
	"github.com/oneconcern/releaser/pkg/image/status"
)

// GitRevision reads the current source revision from git
type GitRevision struct {
	runner command.Runner
	dir    string
}

// NewGitRevision for the repository at dir ("" for the current directory)
func NewGitRevision(runner command.Runner, dir string) *GitRevision {
	return &GitRevision{runner: runner, dir: dir}
}

// Short returns the abbreviated hash of the last commit
func (g *GitRevision) Short(ctx context.Context) (string, error) {
	c := command.New("git", "log", "-1", "--pretty=%h")
	c.Dir = g.dir
	res, err := g.runner.Run(ctx, c)
	if err != nil {
		return "", status.ErrRevision.Wrap(err)
	}
	if !res.OK() {
		return "", status.ErrRevision.WrapMessage("git exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	fields := strings.Fields(res.Stdout)
	if len(fields) == 0 {
		return "", status.ErrRevision.WrapMessage("git returned no commit")
	}
	return fields[0], nil
}
