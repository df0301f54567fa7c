//go:build !unix

package command

import (
	"os"
	"os/exec"

	"github.com/oneconcern/releaser/pkg/errors"
)

// inProcessGroup kills the process alone: process groups are not available on this platform
func inProcessGroup(cmd *exec.Cmd, onKillError func(error)) {
	cmd.Cancel = func() error {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			onKillError(err)
			return err
		}
		return nil
	}
}
